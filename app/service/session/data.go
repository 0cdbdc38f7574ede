package session

import (
	"sync"
	"time"

	"github.com/thescottlumley-debug/call-screener/app/service/decision"
)

// Mode is the extended interaction the call is currently in. The modes are
// mutually exclusive by construction.
type Mode int

const (
	// ModeScreening is the main decision loop.
	ModeScreening Mode = iota
	// ModeRelay means the caller is parked awaiting an operator decision.
	ModeRelay
	// ModeVoicemail means the voicemail intake sub-flow is active.
	ModeVoicemail
	// ModeScheduling means the next caller utterance is a callback time.
	ModeScheduling
)

type VoicemailState struct {
	Parts    []string
	Turns    int
	Exchange []decision.FollowupExchange
	Reason   string
}

// Session holds the state of one active call, keyed by call-control id.
// Handlers must hold the session lock while reading or mutating it; the lock
// is what serializes event handling per ccid.
type Session struct {
	mu sync.Mutex

	CCID     string
	CallerID string

	History  []decision.Utterance
	Turns    int
	Deciding bool

	Mode  Mode
	Slots decision.Slots

	Voicemail VoicemailState
	Lookup    *decision.LookupVerdict

	relayTimer *time.Timer
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SetRelayTimer arms the hold timeout, replacing any previous timer.
func (s *Session) SetRelayTimer(d time.Duration, fn func()) {
	s.StopRelayTimer()
	s.relayTimer = time.AfterFunc(d, fn)
}

func (s *Session) StopRelayTimer() {
	if s.relayTimer != nil {
		s.relayTimer.Stop()
		s.relayTimer = nil
	}
}

func (s *Session) AppendCaller(text string) {
	s.History = append(s.History, decision.Utterance{Role: decision.RoleCaller, Content: text})
}

func (s *Session) AppendAssistant(text string) {
	s.History = append(s.History, decision.Utterance{Role: decision.RoleAssistant, Content: text})
}
