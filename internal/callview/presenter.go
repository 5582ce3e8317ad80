package callview

import (
	"sync"
	"time"

	"healthmate/internal/voice"
)

const agentName = "Mate"

// Presenter turns voice session events into call screen views. It is safe
// for concurrent use.
type Presenter struct {
	mu  sync.Mutex
	now func() time.Time

	view View

	ongoingSince time.Time
	ongoingTotal time.Duration
}

// NewPresenter starts in the ringing state. now may be nil.
func NewPresenter(now func() time.Time) *Presenter {
	if now == nil {
		now = time.Now
	}
	return &Presenter{
		now: now,
		view: View{
			CallStatus: CallRinging,
			Message:    "Calling " + agentName + "...",
			Activity:   ActivityIdle,
			AgentName:  agentName,
			Cues:       []Cue{CueRing},
			SpeakerOn:  true,
			KeepAwake:  true,
		},
	}
}

// Initial returns the opening view including its ring cue.
func (p *Presenter) Initial() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(p.view.Cues)
}

// Apply maps a session status onto the view and returns it with the cues the
// transition triggers.
func (p *Presenter) Apply(st voice.Status) View {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cues []Cue
	v := &p.view
	switch st {
	case voice.StatusConnecting:
		p.setStatusLocked(CallConnecting)
		v.Message = "Calling..."
		v.Activity = ActivityIdle
	case voice.StatusConnected:
		p.setStatusLocked(CallConnecting)
		v.Message = "Connected"
		v.Activity = ActivityIdle
		cues = []Cue{CueStopRing, CueConnected}
	case voice.StatusJoined:
		p.setStatusLocked(CallJoined)
		v.Message = "Call in progress"
		v.Activity = ActivityListening
		p.showMicNoticeLocked()
	case voice.StatusIdle:
		v.Message = "Waiting for microphone..."
	case voice.StatusListening:
		p.setStatusLocked(CallOngoing)
		v.Message = "Call in progress"
		v.Activity = ActivityListening
	case voice.StatusSpeaking:
		p.setStatusLocked(CallOngoing)
		v.Activity = ActivitySpeaking
	case voice.StatusDisconnected:
		p.setStatusLocked(CallEnded)
		v.Message = "Call ended"
		v.Activity = ActivityIdle
		v.KeepAwake = false
		cues = []Cue{CueStopRing, CueEnd}
	case voice.StatusError:
		p.setStatusLocked(CallError)
		v.Message = "Call failed"
		v.Activity = ActivityIdle
		v.KeepAwake = false
		cues = []Cue{CueStopRing}
	default:
		v.Message = string(st)
	}
	return p.snapshotLocked(cues)
}

// SetMuted records the mute toggle. Muting pins the microphone notice;
// unmuting shows it with an auto-hide timeout.
func (p *Presenter) SetMuted(muted bool) View {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Muted = muted
	p.showMicNoticeLocked()
	return p.snapshotLocked(nil)
}

func (p *Presenter) SetSpeaker(on bool) View {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.SpeakerOn = on
	return p.snapshotLocked(nil)
}

// Snapshot returns the current view without cues.
func (p *Presenter) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(nil)
}

// Duration is the time spent in the ongoing state.
func (p *Presenter) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationLocked()
}

func (p *Presenter) setStatusLocked(s CallStatus) {
	prev := p.view.CallStatus
	if prev == s {
		return
	}
	now := p.now()
	if prev == CallOngoing {
		p.ongoingTotal += now.Sub(p.ongoingSince)
	}
	if s == CallOngoing {
		p.ongoingSince = now
	}
	p.view.CallStatus = s
}

func (p *Presenter) showMicNoticeLocked() {
	p.view.ShowMicNotice = true
	if p.view.Muted {
		p.view.MicNoticeTimeoutMs = 0
		return
	}
	p.view.MicNoticeTimeoutMs = micNoticeTimeoutMs
}

func (p *Presenter) durationLocked() time.Duration {
	d := p.ongoingTotal
	if p.view.CallStatus == CallOngoing {
		d += p.now().Sub(p.ongoingSince)
	}
	return d
}

func (p *Presenter) snapshotLocked(cues []Cue) View {
	out := p.view
	out.Cues = cues
	secs := int(p.durationLocked() / time.Second)
	out.DurationSeconds = secs
	out.Duration = FormatDuration(secs)
	return out
}
