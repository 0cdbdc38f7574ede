package screening

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/service/decision"
	"github.com/thescottlumley-debug/call-screener/app/service/directory"
	"github.com/thescottlumley-debug/call-screener/app/service/session"
)

func (s *Service) handleTranscript(ctx context.Context, ev *telnyx.Event) {
	transcript := strings.TrimSpace(ev.Transcript)
	if !ev.IsFinal || transcript == "" {
		return
	}

	sess := s.store.GetOrCreate(ev.CCID, ev.CallerID)
	sess.Lock()

	if sess.CallerID == "" {
		sess.CallerID = ev.CallerID
	}

	switch sess.Mode {
	case session.ModeScheduling:
		s.handleSchedulingTranscript(ctx, sess, transcript)
		sess.Unlock()
		return

	case session.ModeVoicemail:
		s.handleVoicemailTranscript(ctx, sess, transcript)
		sess.Unlock()
		return

	case session.ModeRelay:
		s.handleHoldTranscript(ctx, sess, transcript)
		sess.Unlock()
		return
	}

	if sess.Deciding {
		slog.Debug("Discarding transcript: already deciding", "ccid", sess.CCID)
		sess.Unlock()
		return
	}
	sess.Deciding = true

	s.stopListening(ctx, sess.CCID)

	if isGreetingEcho(transcript, s.cfg.Screening.AssistantName, s.cfg.Screening.SubscriberName) {
		slog.Debug("Ignoring greeting echo", "transcript", transcript)
		sess.Deciding = false
		sess.Unlock()
		s.startListening(ctx, sess.CCID)
		return
	}

	// Fast path: an utterance naming an approved contact connects without a
	// decision turn.
	if s.dir.NameApproved(transcript) {
		slog.Info("Approved name spoken, connecting", "caller", sess.CallerID)
		sess.Deciding = false
		s.speak(ctx, sess.CCID, fmt.Sprintf("One moment, connecting you to %s now.", s.cfg.Screening.SubscriberName), telnyx.TagBriefing)
		s.transfer(ctx, sess.CCID)
		s.callLog.Add(sess.CallerID, sess.Slots.Name, "connect_name", "approved contact name")
		s.store.Delete(sess.CCID)
		sess.Unlock()
		return
	}

	sess.AppendCaller(transcript)
	req := s.buildScreenRequest(sess)
	ccid, callerID := sess.CCID, sess.CallerID

	// The adapter call is slow; release the lock so racing finals hit the
	// Deciding guard and are discarded rather than queued.
	sess.Unlock()

	dec, err := s.adapter.ScreenTurn(ctx, req)
	if err != nil {
		slog.Warn("Decision adapter failed, asking to repeat", "ccid", ccid, "error", err)
		dec = decision.Fallback()
	}

	sess.Lock()
	defer sess.Unlock()

	sess.Turns++
	sess.Deciding = false
	sess.Slots.Merge(dec)

	s.fillMissingSlots(ctx, sess, transcript)

	s.dir.Update(callerID, directory.Update{
		Name:       sess.Slots.Name,
		Action:     string(dec.Action),
		Purpose:    sess.Slots.Purpose,
		Urgency:    sess.Slots.Urgency,
		CallerType: sess.Slots.CallerType,
	})
	s.callLog.Add(callerID, sess.Slots.Name, string(dec.Action), sess.Slots.Purpose)

	sess.AppendAssistant(dec.Message)

	// The turn cap is advisory to the adapter; if it keeps talking at the
	// cap, force the voicemail sub-flow instead.
	if dec.Action == decision.ActionSpeak && sess.Turns >= s.cfg.Screening.MaxTurns {
		slog.Info("Turn cap reached, forcing voicemail", "ccid", ccid, "turns", sess.Turns)
		s.startVoicemailLocked(ctx, sess, "turn cap reached")
		return
	}

	s.dispatch(ctx, sess, dec, transcript)
}

func (s *Service) buildScreenRequest(sess *session.Session) *decision.ScreenRequest {
	var lookupContext string
	if v := sess.Lookup; v != nil {
		switch {
		case v.SpamScore >= 6:
			lookupContext = fmt.Sprintf("\nLOOKUP WARNING: Spam score %d/10. %s", v.SpamScore, v.Summary)
		case v.BusinessName != "":
			lookupContext = fmt.Sprintf("\nLOOKUP: This number belongs to %s. %s", v.BusinessName, v.Summary)
		case v.Summary != "" && v.Summary != "No public information found.":
			lookupContext = "\nLOOKUP: " + v.Summary
		}
	}

	var callerContext string
	if summary := s.dir.RelationshipSummary(sess.CallerID); summary != "" {
		callerContext = "\nRelationship: " + summary
	}

	return &decision.ScreenRequest{
		CallerID:      sess.CallerID,
		History:       append([]decision.Utterance(nil), sess.History...),
		Known:         sess.Slots,
		CallerContext: callerContext,
		LookupContext: lookupContext,
		ApprovedNames: s.dir.ApprovedNames(),
		CurrentTime:   s.nowFunc().In(s.loc).Format("Monday, January 02 at 03:04 PM MST"),
		Turn:          sess.Turns,
		MaxTurns:      s.cfg.Screening.MaxTurns,
	}
}

// fillMissingSlots runs the cheaper backup extractors when the main decision
// left a gap. Best-effort: failures leave the slot empty.
func (s *Service) fillMissingSlots(ctx context.Context, sess *session.Session, transcript string) {
	if sess.Slots.Name == "" {
		if name, err := s.adapter.ExtractName(ctx, transcript); err == nil && name != "" {
			sess.Slots.Name = name
		}
	}

	if sess.Slots.CallerType == "" && sess.Slots.Purpose != "" {
		if t, err := s.adapter.ClassifyCallerType(ctx, transcript, sess.Slots.Purpose); err == nil && t != decision.TypeUnknown {
			sess.Slots.CallerType = t
		}
	}
}

func (s *Service) dispatch(ctx context.Context, sess *session.Session, dec *decision.Decision, transcript string) {
	switch dec.Action {
	case decision.ActionSpeak:
		s.speak(ctx, sess.CCID, dec.Message, telnyx.TagNone)
		s.startListening(ctx, sess.CCID)

	case decision.ActionConnect:
		s.speak(ctx, sess.CCID, dec.Message, telnyx.TagBriefing)
		s.transfer(ctx, sess.CCID)
		s.store.Delete(sess.CCID)

	case decision.ActionEscalate:
		s.enterRelayLocked(ctx, sess)

	case decision.ActionSchedule:
		timeStr := transcript
		if dec.ScheduledTime != nil && *dec.ScheduledTime != "" {
			timeStr = *dec.ScheduledTime
		}
		s.bookAndFinish(ctx, sess, timeStr, dec.Message)

	case decision.ActionVoicemail:
		sess.Mode = session.ModeVoicemail
		sess.Voicemail = session.VoicemailState{Reason: "decision"}
		s.speak(ctx, sess.CCID, dec.Message, telnyx.TagVoicemailPrompt)

	case decision.ActionBlock:
		s.speak(ctx, sess.CCID, dec.Message, telnyx.TagScreened)
		s.hangup(ctx, sess.CCID)
		s.store.Delete(sess.CCID)

	default:
		slog.Warn("Unknown decision action", "action", dec.Action)
		s.speak(ctx, sess.CCID, dec.Message, telnyx.TagNone)
		s.startListening(ctx, sess.CCID)
	}
}

func isGreetingEcho(transcript, assistantName, subscriberName string) bool {
	t := strings.ToLower(transcript)

	for _, phrase := range greetingEchoPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}

	return strings.Contains(t, strings.ToLower(assistantName)) ||
		strings.Contains(t, strings.ToLower(subscriberName))
}
