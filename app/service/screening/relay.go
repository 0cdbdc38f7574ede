package screening

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/service/directory"
	"github.com/thescottlumley-debug/call-screener/app/service/session"
)

const holdMessage = "I'm checking right now. Please hold for just a moment. " +
	"If you'd prefer, say voicemail and I can take a message instead."

const holdReassurance = "Still checking. Thank you for your patience. " +
	"Say voicemail anytime if you'd like to leave a message."

// enterRelayLocked parks the caller and relays the decision to the operator.
// A second escalate for a call already pending is a no-op.
func (s *Service) enterRelayLocked(ctx context.Context, sess *session.Session) {
	if sess.Mode == session.ModeRelay {
		slog.Debug("Relay already pending, ignoring", "ccid", sess.CCID)
		return
	}

	urgency := defaultRelayUrgency
	if sess.Slots.Urgency != nil {
		urgency = *sess.Slots.Urgency
	}

	s.store.AddPending(sess.CallerID, sess.CCID)
	sess.Mode = session.ModeRelay

	s.notify(ctx, s.relayNotification(sess, urgency))

	if d := s.cfg.Screening.RelayHoldTimeoutSec; d > 0 {
		ccid := sess.CCID
		sess.SetRelayTimer(time.Duration(d)*time.Second, func() {
			s.relayTimedOut(ccid)
		})
	}

	s.speak(ctx, sess.CCID, holdMessage, telnyx.TagRelayHold)
}

func (s *Service) relayNotification(sess *session.Session, urgency int) string {
	rec, _ := s.dir.GetRecord(sess.CallerID)

	historyNote := " (first call)"
	if rec.CallCount > 1 {
		historyNote = fmt.Sprintf(" (call #%d)", rec.CallCount)
	}

	displayName := sess.Slots.Name
	if displayName == "" {
		displayName = "Unknown caller"
	}

	var typeNote string
	if sess.Slots.CallerType != "" {
		typeNote = "\nType: " + string(sess.Slots.CallerType)
	}

	return fmt.Sprintf("Incoming Call%s\nFrom: %s (%s)%s\nRe: %s\nUrgency: %s (%d/10)\n\nReply FORWARD, VM, or SCHEDULE to book a callback.",
		historyNote, displayName, sess.CallerID, typeNote, sess.Slots.Purpose, urgencyTier(urgency), urgency)
}

func urgencyTier(urgency int) string {
	switch {
	case urgency >= 8:
		return "HIGH"
	case urgency >= 5:
		return "MED"
	default:
		return "LOW"
	}
}

// relayTimedOut moves a still-parked caller to voicemail when the operator
// never replied within the configured hold window.
func (s *Service) relayTimedOut(ccid string) {
	sess, ok := s.store.Get(ccid)
	if !ok {
		return
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Mode != session.ModeRelay {
		return
	}

	slog.Info("Relay hold timed out, taking voicemail", "ccid", ccid)

	s.store.RemovePending(sess.CallerID)
	sess.StopRelayTimer()
	s.startVoicemailLocked(context.Background(), sess, "operator did not respond in time")
}

// While parked, caller utterances are screened for the voicemail opt-out
// only; anything else gets a reassurance and does not re-enter the decision
// loop.
func (s *Service) handleHoldTranscript(ctx context.Context, sess *session.Session, transcript string) {
	lowered := strings.ToLower(transcript)

	for _, phrase := range holdOptOutPhrases {
		if strings.Contains(lowered, phrase) {
			slog.Info("Parked caller opted for voicemail", "ccid", sess.CCID)
			s.store.RemovePending(sess.CallerID)
			sess.StopRelayTimer()
			s.startVoicemailLocked(ctx, sess, "caller chose voicemail while on hold")
			return
		}
	}

	s.speak(ctx, sess.CCID, holdReassurance, telnyx.TagRelayHold)
}

// Operator resolutions. Each command resolves the single oldest pending
// relay; the returned name is used in the operator's confirmation reply.

func (s *Service) ResolveRelayConnect(ctx context.Context) (string, bool) {
	entry, sess, ok := s.popPending()
	if !ok {
		return "", false
	}
	if sess == nil {
		return entry.CallerID, true
	}

	sess.Lock()
	defer sess.Unlock()

	sess.StopRelayTimer()

	display := displayName(sess)

	s.speak(ctx, sess.CCID, s.buildBriefing(sess), telnyx.TagBriefing)
	s.transfer(ctx, sess.CCID)

	s.dir.Update(sess.CallerID, directory.Update{
		Action:     "connect_operator",
		Purpose:    sess.Slots.Purpose,
		Urgency:    sess.Slots.Urgency,
		CallerType: sess.Slots.CallerType,
	})

	s.store.Delete(sess.CCID)

	return display, true
}

func (s *Service) ResolveRelayVoicemail(ctx context.Context) (string, bool) {
	entry, sess, ok := s.popPending()
	if !ok {
		return "", false
	}
	if sess == nil {
		return entry.CallerID, true
	}

	sess.Lock()
	defer sess.Unlock()

	sess.StopRelayTimer()
	display := displayName(sess)
	s.startVoicemailLocked(ctx, sess, "operator chose voicemail")

	return display, true
}

func (s *Service) ResolveRelaySchedule(ctx context.Context) (string, bool) {
	entry, sess, ok := s.popPending()
	if !ok {
		return "", false
	}
	if sess == nil {
		return entry.CallerID, true
	}

	sess.Lock()
	defer sess.Unlock()

	sess.StopRelayTimer()
	sess.Mode = session.ModeScheduling

	s.speak(ctx, sess.CCID, fmt.Sprintf(
		"%s would like to schedule a callback with you. What day and time works best for you?",
		s.cfg.Screening.SubscriberName), telnyx.TagNone)
	s.startListening(ctx, sess.CCID)

	return displayName(sess), true
}

func (s *Service) popPending() (session.PendingRelay, *session.Session, bool) {
	entry, ok := s.store.PopOldestPending()
	if !ok {
		return session.PendingRelay{}, nil, false
	}

	sess, ok := s.store.Get(entry.CCID)
	if !ok {
		// Caller hung up between the notification and the reply.
		return entry, nil, true
	}

	return entry, sess, true
}

// buildBriefing is the spoken heads-up delivered to the subscriber right
// before a transfer.
func (s *Service) buildBriefing(sess *session.Session) string {
	rec, _ := s.dir.GetRecord(sess.CallerID)

	display := sess.Slots.Name
	if display == "" {
		display = "an unknown caller"
	}

	var countNote string
	if rec.CallCount > 1 {
		countNote = fmt.Sprintf("This is their call number %d. ", rec.CallCount)
	}

	var typeNote string
	if sess.Slots.CallerType != "" {
		typeNote = fmt.Sprintf("They appear to be a %s. ", sess.Slots.CallerType)
	}

	var urgencyNote string
	if sess.Slots.Urgency != nil && *sess.Slots.Urgency >= 8 {
		urgencyNote = "They say it is urgent. "
	}

	purpose := sess.Slots.Purpose
	if purpose == "" {
		purpose = "an unstated reason"
	}

	return fmt.Sprintf("Heads up. Connecting you now with %s. %s%sThey are calling about: %s. %sGo ahead.",
		display, countNote, typeNote, purpose, urgencyNote)
}

func displayName(sess *session.Session) string {
	if sess.Slots.Name != "" {
		return sess.Slots.Name
	}

	return sess.CallerID
}
