package callview

import "fmt"

// CallStatus is the call screen state, coarser than voice.Status.
type CallStatus string

const (
	CallRinging    CallStatus = "ringing"
	CallConnecting CallStatus = "connecting"
	CallJoined     CallStatus = "joined"
	CallOngoing    CallStatus = "ongoing"
	CallEnded      CallStatus = "ended"
	CallError      CallStatus = "error"
)

type Activity string

const (
	ActivityIdle      Activity = "idle"
	ActivityListening Activity = "listening"
	ActivitySpeaking  Activity = "speaking"
)

// Cue is a sound effect the client plays once.
type Cue string

const (
	CueRing      Cue = "ring"
	CueStopRing  Cue = "stop_ring"
	CueConnected Cue = "connected"
	CueEnd       Cue = "end"
)

const micNoticeTimeoutMs = 5000

// View is everything the call screen renders.
type View struct {
	CallStatus CallStatus `json:"call_status"`
	Message    string     `json:"message"`
	Activity   Activity   `json:"agent_activity"`
	AgentName  string     `json:"agent_name"`

	// Cues holds the sound effects triggered by the transition that produced
	// this view.
	Cues []Cue `json:"cues,omitempty"`

	Muted     bool `json:"muted"`
	SpeakerOn bool `json:"speaker_on"`
	KeepAwake bool `json:"keep_awake"`

	ShowMicNotice bool `json:"show_mic_notice"`
	// MicNoticeTimeoutMs is how long the client shows the notice before
	// hiding it. Zero keeps it visible.
	MicNoticeTimeoutMs int `json:"mic_notice_timeout_ms,omitempty"`

	DurationSeconds int    `json:"duration_seconds"`
	Duration        string `json:"duration"`
}

// FormatDuration renders seconds as mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
