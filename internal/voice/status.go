package voice

// Status is the call lifecycle state reported to the status callback.
//
// The set mirrors what the voice vendor reports plus the two wrapper-level
// states (joined, error) the call screen renders.
type Status string

const (
	StatusConnecting    Status = "connecting"
	StatusConnected     Status = "connected"
	StatusJoined        Status = "joined"
	StatusIdle          Status = "idle"
	StatusListening     Status = "listening"
	StatusThinking      Status = "thinking"
	StatusSpeaking      Status = "speaking"
	StatusDisconnecting Status = "disconnecting"
	StatusDisconnected  Status = "disconnected"
	StatusError         Status = "error"
)

// Speaker identifies who produced a transcript line.
type Speaker string

const (
	SpeakerAgent Speaker = "agent"
	SpeakerUser  Speaker = "user"
)

// Transcript is one finalized line of conversation.
type Transcript struct {
	Text    string  `json:"text"`
	Speaker Speaker `json:"speaker"`
}

func (t Transcript) IsAgent() bool { return t.Speaker == SpeakerAgent }

// Diagnostics is a point-in-time snapshot of a Session for debugging endpoints.
type Diagnostics struct {
	Status          Status `json:"status"`
	Connected       bool   `json:"connected"`
	Mock            bool   `json:"mock"`
	MockReason      string `json:"mock_reason,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	TransportStatus string `json:"transport_status"`
	Muted           bool   `json:"muted"`
}
