package screening

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/service/decision"
	"github.com/thescottlumley-debug/call-screener/app/service/directory"
	"github.com/thescottlumley-debug/call-screener/app/service/session"
)

// HandleEvent is the single entry point for telephony events. Events for a
// given ccid are serialized by the session lock; events for different calls
// run concurrently.
func (s *Service) HandleEvent(ctx context.Context, ev *telnyx.Event) {
	if s.isOutboundLeg(ev) {
		slog.Debug("Ignoring outbound leg event", "type", ev.Type, "ccid", ev.CCID)
		return
	}

	switch ev.Type {
	case telnyx.EventCallInitiated:
		s.handleInitiated(ctx, ev)
	case telnyx.EventCallAnswered:
		s.handleAnswered(ctx, ev)
	case telnyx.EventSpeakEnded:
		s.handleSpeakEnded(ctx, ev)
	case telnyx.EventTranscription:
		s.handleTranscript(ctx, ev)
	case telnyx.EventRecordSaved:
		s.handleRecordSaved(ctx, ev)
	case telnyx.EventHangup:
		s.handleHangup(ev)
	default:
		slog.Debug("Unhandled event", "type", ev.Type)
	}
}

// Transfer legs and the screener's own outbound calls never enter screening.
func (s *Service) isOutboundLeg(ev *telnyx.Event) bool {
	if ev.Direction == "outgoing" {
		return true
	}

	_, known := s.store.Get(ev.CCID)

	return !known && ev.CallerID == s.cfg.Telnyx.Number
}

func (s *Service) handleInitiated(ctx context.Context, ev *telnyx.Event) {
	s.store.GetOrCreate(ev.CCID, ev.CallerID)

	if err := s.control.Answer(ctx, ev.CCID); err != nil {
		slog.Error("Answer failed", "ccid", ev.CCID, "error", err)
	}
}

func (s *Service) handleAnswered(ctx context.Context, ev *telnyx.Event) {
	sess := s.store.GetOrCreate(ev.CCID, ev.CallerID)
	sess.Lock()
	defer sess.Unlock()

	callerID := sess.CallerID
	if callerID == "" {
		callerID = ev.CallerID
		sess.CallerID = callerID
	}

	s.dir.Update(callerID, directory.Update{IncrementCount: true})

	approved := s.dir.NumberApproved(callerID)

	if !approved {
		verdict := s.lookup.Lookup(ctx, callerID)
		sess.Lookup = verdict
		if verdict.Summary != "" {
			s.dir.Update(callerID, directory.Update{LookupSummary: verdict.Summary})
		}
	}

	switch {
	case approved || s.dir.IsVIP(callerID):
		s.connectKnownCaller(ctx, sess, approved)

	case sess.Lookup != nil && sess.Lookup.SpamScore >= spamBlockScore:
		s.blockSpam(ctx, sess)

	case s.QuietHours():
		s.startVoicemailLocked(ctx, sess, "quiet hours")

	case s.dir.DND():
		s.startVoicemailLocked(ctx, sess, "do not disturb")

	default:
		s.greet(ctx, sess)
	}
}

func (s *Service) connectKnownCaller(ctx context.Context, sess *session.Session, whitelisted bool) {
	rec, _ := s.dir.GetRecord(sess.CallerID)

	msg := fmt.Sprintf("One moment, connecting you to %s.", s.cfg.Screening.SubscriberName)
	if rec.Name != "" {
		vipNote := ""
		if !whitelisted {
			vipNote = " You're on the VIP list."
		}
		msg = fmt.Sprintf("Welcome back, %s!%s One moment.", rec.Name, vipNote)
	}

	s.speak(ctx, sess.CCID, msg, telnyx.TagScreened)
	s.transfer(ctx, sess.CCID)
	s.callLog.Add(sess.CallerID, rec.Name, "connect_whitelist", "approved contact")
	s.store.Delete(sess.CCID)
}

func (s *Service) blockSpam(ctx context.Context, sess *session.Session) {
	slog.Info("Auto-blocking confirmed spam", "caller", sess.CallerID, "telegram", true)

	s.speak(ctx, sess.CCID, "We're sorry, this number has been identified as spam. Goodbye.", telnyx.TagScreened)
	s.hangup(ctx, sess.CCID)

	s.dir.Update(sess.CallerID, directory.Update{Action: "block_auto"})
	s.callLog.Add(sess.CallerID, "", "block_auto", "confirmed spam")
	s.notify(ctx, fmt.Sprintf("Auto-blocked spam call from %s.\nReason: %s", sess.CallerID, sess.Lookup.Summary))
	s.store.Delete(sess.CCID)
}

func (s *Service) greet(ctx context.Context, sess *session.Session) {
	rec, known := s.dir.GetRecord(sess.CallerID)

	// A lookup that identified a business pre-seeds the caller type.
	if sess.Lookup != nil && sess.Lookup.IsBusiness && sess.Lookup.BusinessName != "" && rec.CallerType == "" {
		sess.Slots.CallerType = decision.TypeBusiness
	}

	var greeting string
	if known && rec.Name != "" {
		sess.Slots.Name = rec.Name
		if rec.CallerType != "" {
			sess.Slots.CallerType = decision.CallerType(rec.CallerType)
		}

		if rec.LastPurpose != "" {
			greeting = fmt.Sprintf("Welcome back, %s! Last time you called about %s. How can I help you today?",
				rec.Name, rec.LastPurpose)
		} else {
			greeting = fmt.Sprintf("Welcome back, %s! How can I help you today?", rec.Name)
		}
	} else {
		greeting = fmt.Sprintf(
			"Thank you for calling. You've reached %s's office. I'm %s, his personal assistant. May I ask who's calling please?",
			s.cfg.Screening.SubscriberName, s.cfg.Screening.AssistantName)
	}

	s.speak(ctx, sess.CCID, greeting, telnyx.TagNone)
	s.startListening(ctx, sess.CCID)
}

func (s *Service) handleSpeakEnded(ctx context.Context, ev *telnyx.Event) {
	switch ev.Tag {
	case telnyx.TagVoicemailPrompt:
		if err := s.control.StartRecording(ctx, ev.CCID, telnyx.TagRecording); err != nil {
			slog.Error("StartRecording failed", "ccid", ev.CCID, "error", err)
		}
		s.startListening(ctx, ev.CCID)

	case telnyx.TagScreened, telnyx.TagBriefing:
		// Terminal prompts; nothing left to do on this leg.

	case telnyx.TagRelayHold:
		sess, ok := s.store.Get(ev.CCID)
		if !ok {
			return
		}

		sess.Lock()
		inRelay := sess.Mode == session.ModeRelay
		sess.Unlock()

		if inRelay {
			s.startListening(ctx, ev.CCID)
		}

	default:
		sess, ok := s.store.Get(ev.CCID)
		if !ok {
			return
		}

		sess.Lock()
		resume := !sess.Deciding && sess.Mode == session.ModeScreening
		sess.Unlock()

		if resume {
			s.startListening(ctx, ev.CCID)
		}
	}
}

func (s *Service) handleRecordSaved(ctx context.Context, ev *telnyx.Event) {
	if _, ok := s.store.Get(ev.CCID); !ok {
		return
	}

	slog.Info("Voicemail recording saved", "ccid", ev.CCID)

	s.speak(ctx, ev.CCID, "Thank you. Your message has been saved. Goodbye.", telnyx.TagScreened)
	s.hangup(ctx, ev.CCID)
}

// A hangup at any state destroys the session and clears any pending relay
// for the caller, regardless of which sub-flow was active.
func (s *Service) handleHangup(ev *telnyx.Event) {
	callerID := ev.CallerID

	if sess, ok := s.store.Get(ev.CCID); ok {
		sess.Lock()
		if sess.CallerID != "" {
			callerID = sess.CallerID
		}
		sess.StopRelayTimer()
		sess.Unlock()
	}

	s.store.RemovePending(callerID)
	s.store.Delete(ev.CCID)

	slog.Debug("Session cleaned up", "ccid", ev.CCID)
}

// QuietHours reports whether the local time is inside the configured quiet window.
func (s *Service) QuietHours() bool {
	start := s.cfg.Screening.QuietStartHour
	end := s.cfg.Screening.QuietEndHour
	hour := s.nowFunc().In(s.loc).Hour()

	if start > end {
		return hour >= start || hour < end
	}

	return hour >= start && hour < end
}

// Control-plane helpers: failures are logged, the machine proceeds.

func (s *Service) speak(ctx context.Context, ccid, text string, tag telnyx.PromptTag) {
	if err := s.control.Speak(ctx, ccid, text, tag); err != nil {
		slog.Error("Speak failed", "ccid", ccid, "error", err)
	}
}

func (s *Service) startListening(ctx context.Context, ccid string) {
	if err := s.control.StartTranscription(ctx, ccid); err != nil {
		slog.Error("StartTranscription failed", "ccid", ccid, "error", err)
	}
}

func (s *Service) stopListening(ctx context.Context, ccid string) {
	if err := s.control.StopTranscription(ctx, ccid); err != nil {
		slog.Error("StopTranscription failed", "ccid", ccid, "error", err)
	}
}

func (s *Service) transfer(ctx context.Context, ccid string) {
	if err := s.control.Transfer(ctx, ccid, s.cfg.Telnyx.SubscriberNumber); err != nil {
		slog.Error("Transfer failed", "ccid", ccid, "error", err)
	}
}

func (s *Service) hangup(ctx context.Context, ccid string) {
	if err := s.control.Hangup(ctx, ccid); err != nil {
		slog.Error("Hangup failed", "ccid", ccid, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, text string) {
	if err := s.notifier.Notify(ctx, text); err != nil {
		slog.Error("Operator notification failed", "error", err)
	}
}
