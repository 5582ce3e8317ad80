package voice

import "time"

const (
	mockGreeting   = "Hello, I'm your HealthMate assistant. How can I help you today?"
	mockUserLine   = "I'd like to schedule an appointment with Dr. Chen."
	mockAgentReply = "I can help you schedule that appointment. Dr. Chen has availability on Thursday at 2pm or Friday at 10am. Which would you prefer?"
)

// MockSchedule holds the delays of the simulated conversation. Each delay is
// measured from the previous step.
type MockSchedule struct {
	// Connection sequence.
	Connected    time.Duration
	Joined       time.Duration
	Listening    time.Duration
	Greeting     time.Duration
	GreetingDone time.Duration

	// Speech simulated after the caller unmutes.
	UserSpeech time.Duration
	AgentReply time.Duration
	ReplyDone  time.Duration
}

func DefaultMockSchedule() MockSchedule {
	return MockSchedule{
		Connected:    2 * time.Second,
		Joined:       1500 * time.Millisecond,
		Listening:    1 * time.Second,
		Greeting:     2 * time.Second,
		GreetingDone: 3 * time.Second,
		UserSpeech:   2 * time.Second,
		AgentReply:   1500 * time.Millisecond,
		ReplyDone:    3 * time.Second,
	}
}

func (m MockSchedule) withDefaults() MockSchedule {
	d := DefaultMockSchedule()
	out := m
	if out.Connected <= 0 {
		out.Connected = d.Connected
	}
	if out.Joined <= 0 {
		out.Joined = d.Joined
	}
	if out.Listening <= 0 {
		out.Listening = d.Listening
	}
	if out.Greeting <= 0 {
		out.Greeting = d.Greeting
	}
	if out.GreetingDone <= 0 {
		out.GreetingDone = d.GreetingDone
	}
	if out.UserSpeech <= 0 {
		out.UserSpeech = d.UserSpeech
	}
	if out.AgentReply <= 0 {
		out.AgentReply = d.AgentReply
	}
	if out.ReplyDone <= 0 {
		out.ReplyDone = d.ReplyDone
	}
	return out
}

// timerGroup tracks the timers of one simulated sequence so they can be
// released together. All methods require the owning Session's lock.
//
// cancel bumps the epoch: a timer whose callback already started but has not
// yet acquired the lock sees a stale epoch and does nothing.
type timerGroup struct {
	epoch  uint64
	timers []*time.Timer
}

func (g *timerGroup) after(s *Session, d time.Duration, fn func()) {
	epoch := g.epoch
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if g.epoch != epoch {
			return
		}
		g.forget(t)
		fn()
	})
	g.timers = append(g.timers, t)
}

func (g *timerGroup) forget(t *time.Timer) {
	for i, x := range g.timers {
		if x == t {
			g.timers = append(g.timers[:i], g.timers[i+1:]...)
			return
		}
	}
}

func (g *timerGroup) cancel() {
	for _, t := range g.timers {
		t.Stop()
	}
	g.timers = nil
	g.epoch++
}

// startMockLocked switches the session to simulated mode and schedules the
// scripted connection sequence.
func (s *Session) startMockLocked(reason string) {
	s.mock = true
	s.mockReason = reason
	s.log.Warn("voice: using mock mode", "reason", reason, "session_id", s.sessionID)

	s.sequence.cancel()
	s.speech.cancel()
	s.setStatusLocked(StatusConnecting)

	sch := s.opts.Schedule
	s.sequence.after(s, sch.Connected, func() {
		s.connected = true
		s.setStatusLocked(StatusConnected)

		s.sequence.after(s, sch.Joined, func() {
			s.setStatusLocked(StatusJoined)

			s.sequence.after(s, sch.Listening, func() {
				s.setStatusLocked(StatusListening)

				s.sequence.after(s, sch.Greeting, func() {
					s.emitTranscriptLocked(Transcript{Text: mockGreeting, Speaker: SpeakerAgent})
					s.setStatusLocked(StatusSpeaking)

					s.sequence.after(s, sch.GreetingDone, func() {
						s.setStatusLocked(StatusListening)
					})
				})
			})
		})
	})
}

// mockMuteLocked replaces any pending simulated speech. Unmuting in mock mode
// schedules one caller line followed by an agent reply.
func (s *Session) mockMuteLocked(muted bool) {
	s.speech.cancel()
	if !s.mock || !s.active || muted {
		return
	}

	sch := s.opts.Schedule
	s.speech.after(s, sch.UserSpeech, func() {
		if s.muted {
			return
		}
		s.emitTranscriptLocked(Transcript{Text: mockUserLine, Speaker: SpeakerUser})

		s.speech.after(s, sch.AgentReply, func() {
			s.setStatusLocked(StatusSpeaking)
			s.emitTranscriptLocked(Transcript{Text: mockAgentReply, Speaker: SpeakerAgent})

			s.speech.after(s, sch.ReplyDone, func() {
				s.setStatusLocked(StatusListening)
			})
		})
	})
}
