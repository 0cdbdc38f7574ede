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

func (s *Service) startVoicemailLocked(ctx context.Context, sess *session.Session, reason string) {
	slog.Info("Starting voicemail intake", "ccid", sess.CCID, "reason", reason)

	sess.Mode = session.ModeVoicemail
	sess.Voicemail = session.VoicemailState{Reason: reason}

	s.speak(ctx, sess.CCID, fmt.Sprintf(
		"%s is not available right now. Please leave your name, a brief message, and the best way to reach you.",
		s.cfg.Screening.SubscriberName), telnyx.TagVoicemailPrompt)
}

func (s *Service) handleVoicemailTranscript(ctx context.Context, sess *session.Session, transcript string) {
	slog.Debug("Voicemail fragment", "ccid", sess.CCID, "turn", sess.Voicemail.Turns)

	s.stopListening(ctx, sess.CCID)

	sess.Voicemail.Parts = append(sess.Voicemail.Parts, transcript)

	// Caller type is inferred once, from the first fragment only.
	if sess.Slots.CallerType == "" && sess.Voicemail.Turns == 0 {
		if t, err := s.adapter.ClassifyCallerType(ctx, transcript, sess.Slots.Purpose); err == nil && t != decision.TypeUnknown {
			sess.Slots.CallerType = t
			slog.Info("Caller type detected", "type", t)
		}
	}

	followup := s.voicemailFollowup(ctx, sess, transcript)

	sess.Voicemail.Exchange = append(sess.Voicemail.Exchange, decision.FollowupExchange{
		Caller:    transcript,
		Assistant: followup.Question,
	})
	sess.Voicemail.Turns++

	if followup.Done || followup.Question == "" {
		s.finalizeVoicemailLocked(ctx, sess)
		return
	}

	s.speak(ctx, sess.CCID, followup.Question, telnyx.TagNone)
	s.startListening(ctx, sess.CCID)
}

// voicemailFollowup enforces the iteration cap independently of the adapter's
// own done flag; the adapter is only consulted below the cap.
func (s *Service) voicemailFollowup(ctx context.Context, sess *session.Session, transcript string) *decision.Followup {
	if sess.Voicemail.Turns >= maxVoicemailFollowups {
		return &decision.Followup{Done: true}
	}

	followup, err := s.adapter.VoicemailFollowup(ctx, &decision.FollowupRequest{
		CallerType: sess.Slots.CallerType,
		Transcript: transcript,
		Exchange:   sess.Voicemail.Exchange,
		Turn:       sess.Voicemail.Turns,
	})
	if err != nil {
		slog.Warn("Voicemail followup failed, wrapping up", "ccid", sess.CCID, "error", err)
		return &decision.Followup{Done: true}
	}

	return followup
}

func (s *Service) finalizeVoicemailLocked(ctx context.Context, sess *session.Session) {
	full := strings.Join(sess.Voicemail.Parts, " ")

	summary, err := s.adapter.SummarizeVoicemail(ctx, full)
	if err != nil || summary == "" {
		summary = full
	}

	s.dir.Update(sess.CallerID, directory.Update{
		Action:           "voicemail",
		Purpose:          sess.Slots.Purpose,
		Urgency:          sess.Slots.Urgency,
		CallerType:       sess.Slots.CallerType,
		VoicemailSummary: summary,
	})

	s.notify(ctx, s.voicemailNotification(sess, summary))

	s.speak(ctx, sess.CCID, fmt.Sprintf(
		"Thank you. Your message has been saved and %s will get back to you. Have a great day. Goodbye.",
		s.cfg.Screening.SubscriberName), telnyx.TagScreened)

	if err := s.control.StopRecording(ctx, sess.CCID); err != nil {
		slog.Error("StopRecording failed", "ccid", sess.CCID, "error", err)
	}
	s.hangup(ctx, sess.CCID)
	s.store.Delete(sess.CCID)
}

func (s *Service) voicemailNotification(sess *session.Session, summary string) string {
	display := sess.CallerID
	if name := sess.Slots.Name; name != "" {
		display = fmt.Sprintf("%s (%s)", name, sess.CallerID)
	} else if rec, ok := s.dir.GetRecord(sess.CallerID); ok && rec.Name != "" {
		display = fmt.Sprintf("%s (%s)", rec.Name, sess.CallerID)
	}

	var details strings.Builder
	if sess.Slots.CallerType != "" {
		fmt.Fprintf(&details, "\nType: %s", sess.Slots.CallerType)
	}
	if sess.Slots.Purpose != "" {
		fmt.Fprintf(&details, "\nRe: %s", sess.Slots.Purpose)
	}
	if sess.Slots.Urgency != nil {
		fmt.Fprintf(&details, "\nUrgency: %d/10", *sess.Slots.Urgency)
	}

	return fmt.Sprintf("Voicemail from %s:%s\n%s", display, details.String(), summary)
}
