package screening

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/service/session"
)

// handleSchedulingTranscript consumes the caller's stated callback time. The
// utterance is stored verbatim; no calendar parsing is attempted.
func (s *Service) handleSchedulingTranscript(ctx context.Context, sess *session.Session, transcript string) {
	s.stopListening(ctx, sess.CCID)

	s.bookAndFinish(ctx, sess, transcript, fmt.Sprintf(
		"Perfect! I have you scheduled. %s will call you back at %s. Thank you for calling and have a wonderful day. Goodbye.",
		s.cfg.Screening.SubscriberName, transcript))
}

func (s *Service) bookAndFinish(ctx context.Context, sess *session.Session, timeStr, confirmation string) {
	appt := s.book.Book(sess.Slots.Name, sess.CallerID, timeStr, sess.Slots.Purpose)

	slog.Info("Callback booked", "id", appt.ID, "caller", sess.CallerID, "time", timeStr)

	s.notify(ctx, fmt.Sprintf("Callback Scheduled\nName: %s (%s)\nTime: %s\nRe: %s\n\nReply APPTS to see all scheduled callbacks.",
		appt.Name, appt.Number, appt.TimeStr, appt.Purpose))

	s.speak(ctx, sess.CCID, confirmation, telnyx.TagScreened)
	s.hangup(ctx, sess.CCID)
	s.store.Delete(sess.CCID)
}
