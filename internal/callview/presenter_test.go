package callview

import (
	"testing"
	"time"

	"healthmate/internal/voice"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func hasCue(v View, cue Cue) bool {
	for _, c := range v.Cues {
		if c == cue {
			return true
		}
	}
	return false
}

func TestPresenter_StartsRinging(t *testing.T) {
	p := NewPresenter(nil)
	v := p.Initial()
	if v.CallStatus != CallRinging || !hasCue(v, CueRing) || !v.SpeakerOn || !v.KeepAwake {
		t.Fatalf("unexpected initial view: %+v", v)
	}
	if v.Duration != "00:00" {
		t.Fatalf("expected zero duration, got %q", v.Duration)
	}
}

func TestPresenter_StatusMapping(t *testing.T) {
	cases := []struct {
		in       voice.Status
		status   CallStatus
		message  string
		activity Activity
	}{
		{voice.StatusConnecting, CallConnecting, "Calling...", ActivityIdle},
		{voice.StatusConnected, CallConnecting, "Connected", ActivityIdle},
		{voice.StatusJoined, CallJoined, "Call in progress", ActivityListening},
		{voice.StatusListening, CallOngoing, "Call in progress", ActivityListening},
		{voice.StatusSpeaking, CallOngoing, "Call in progress", ActivitySpeaking},
		{voice.StatusThinking, CallOngoing, "thinking", ActivitySpeaking},
		{voice.StatusIdle, CallOngoing, "Waiting for microphone...", ActivitySpeaking},
		{voice.StatusDisconnected, CallEnded, "Call ended", ActivityIdle},
	}
	p := NewPresenter(nil)
	for _, tc := range cases {
		v := p.Apply(tc.in)
		if v.CallStatus != tc.status || v.Message != tc.message || v.Activity != tc.activity {
			t.Fatalf("%s: unexpected view %+v", tc.in, v)
		}
	}
}

func TestPresenter_Cues(t *testing.T) {
	p := NewPresenter(nil)
	if v := p.Apply(voice.StatusConnected); !hasCue(v, CueStopRing) || !hasCue(v, CueConnected) {
		t.Fatalf("expected stop_ring and connected cues, got %v", v.Cues)
	}
	if v := p.Apply(voice.StatusListening); len(v.Cues) != 0 {
		t.Fatalf("expected no cues, got %v", v.Cues)
	}
	v := p.Apply(voice.StatusDisconnected)
	if !hasCue(v, CueEnd) || v.KeepAwake {
		t.Fatalf("expected end cue and released wake lock, got %+v", v)
	}
}

func TestPresenter_ErrorStopsRing(t *testing.T) {
	p := NewPresenter(nil)
	v := p.Apply(voice.StatusError)
	if v.CallStatus != CallError || v.Message != "Call failed" || !hasCue(v, CueStopRing) {
		t.Fatalf("unexpected error view: %+v", v)
	}
}

func TestPresenter_DurationCountsOngoingOnly(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	p := NewPresenter(clk.Now)

	p.Apply(voice.StatusConnected)
	clk.Advance(10 * time.Second)
	p.Apply(voice.StatusJoined)
	clk.Advance(5 * time.Second)

	p.Apply(voice.StatusListening)
	clk.Advance(50 * time.Second)
	p.Apply(voice.StatusSpeaking)
	clk.Advance(15 * time.Second)

	v := p.Snapshot()
	if v.DurationSeconds != 65 || v.Duration != "01:05" {
		t.Fatalf("unexpected duration: %d %q", v.DurationSeconds, v.Duration)
	}

	p.Apply(voice.StatusDisconnected)
	clk.Advance(time.Minute)
	if d := p.Duration(); d != 65*time.Second {
		t.Fatalf("duration must stop after the call ends, got %s", d)
	}
}

func TestPresenter_MicNotice(t *testing.T) {
	p := NewPresenter(nil)
	v := p.Apply(voice.StatusJoined)
	if !v.ShowMicNotice || v.MicNoticeTimeoutMs != 5000 {
		t.Fatalf("expected auto-hiding notice on join, got %+v", v)
	}
	v = p.SetMuted(true)
	if !v.Muted || !v.ShowMicNotice || v.MicNoticeTimeoutMs != 0 {
		t.Fatalf("expected pinned notice when muted, got %+v", v)
	}
	v = p.SetMuted(false)
	if v.Muted || v.MicNoticeTimeoutMs != 5000 {
		t.Fatalf("expected auto-hiding notice when unmuted, got %+v", v)
	}
	if v := p.SetSpeaker(false); v.SpeakerOn {
		t.Fatalf("expected speaker off")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{0: "00:00", 9: "00:09", 61: "01:01", 3600: "60:00", -3: "00:00"}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}
