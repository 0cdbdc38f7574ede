package operator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const helpText = "Commands:\n" +
	"FORWARD or F - connect caller\n" +
	"VM - voicemail\n" +
	"SCHEDULE or S - book callback\n" +
	"APPTS - list callbacks\n" +
	"ADD +1XXXXXXXXXX - whitelist\n" +
	"ADD NAME their name - approve a caller name\n" +
	"REMOVE +1XXXXXXXXXX - unwhitelist\n" +
	"VIP ADD +1XXXXXXXXXX - VIP tier\n" +
	"VIP REMOVE +1XXXXXXXXXX\n" +
	"VIP - list VIPs\n" +
	"DND ON / DND OFF - do not disturb\n" +
	"STATUS - system status\n" +
	"STATS - call statistics\n" +
	"SUMMARY - today's call log\n" +
	"HISTORY +1XXXXXXXXXX\n" +
	"LOOKUP +1XXXXXXXXXX\n" +
	"NOTE +1XXXXXXXXXX your note"

// HandleCommand consumes one inbound operator message. Messages from any
// number other than the subscriber's are dropped.
func (s *Service) HandleCommand(ctx context.Context, from, text string) {
	if s.cfg.Telnyx.SubscriberNumber != "" && from != s.cfg.Telnyx.SubscriberNumber {
		slog.Debug("Ignoring command from unknown number", "from", from)
		return
	}

	reply := s.dispatch(ctx, strings.ToUpper(strings.TrimSpace(text)))
	if reply == "" {
		return
	}

	if err := s.notifier.Notify(ctx, reply); err != nil {
		slog.Error("Failed to reply to operator", "error", err)
	}
}

func (s *Service) dispatch(ctx context.Context, text string) string {
	switch {
	case text == "FORWARD" || text == "F":
		return s.resolveRelay(ctx, "connect")
	case text == "VM" || text == "VOICEMAIL":
		return s.resolveRelay(ctx, "voicemail")
	case text == "SCHEDULE" || text == "S":
		return s.resolveRelay(ctx, "schedule")

	case text == "APPTS":
		return s.book.Format()

	case strings.HasPrefix(text, "ADD NAME "):
		name := strings.TrimSpace(text[9:])
		if name == "" {
			return "Usage: ADD NAME their name"
		}
		if s.dir.AddApprovedName(name) {
			return name + " added to approved names. Callers saying this name connect right away."
		}
		return name + " is already an approved name."

	case strings.HasPrefix(text, "ADD "):
		number := normalizeNumber(text[4:])
		if s.dir.AddNumber(number) {
			return number + " added to whitelist."
		}
		return number + " already on whitelist."

	case strings.HasPrefix(text, "REMOVE "):
		number := normalizeNumber(text[7:])
		if s.dir.RemoveNumber(number) {
			return number + " removed from whitelist."
		}
		return number + " was not on the whitelist."

	case text == "STATUS":
		return s.status()

	case strings.HasPrefix(text, "HISTORY "):
		return s.history(normalizeNumber(text[8:]))

	case strings.HasPrefix(text, "NOTE "):
		return s.note(text[5:])

	case text == "STATS":
		return s.stats()

	case text == "DND" || text == "DND ON":
		s.dir.SetDND(true)
		return "Do Not Disturb is ON.\nAll calls will go straight to voicemail.\nText DND OFF to turn it off.\nVIP callers still get through."

	case text == "DND OFF":
		s.dir.SetDND(false)
		return "Do Not Disturb is OFF. Calls are being screened normally."

	case strings.HasPrefix(text, "VIP ADD "):
		number := normalizeNumber(text[8:])
		if s.dir.AddVIP(number) {
			return number + " added to VIP list. They will always get through, even during DND or quiet hours."
		}
		return number + " is already a VIP."

	case strings.HasPrefix(text, "VIP REMOVE "):
		number := normalizeNumber(text[11:])
		if s.dir.RemoveVIP(number) {
			return number + " removed from VIP list."
		}
		return number + " was not on the VIP list."

	case text == "VIP":
		vips := s.dir.VIPs()
		if len(vips) == 0 {
			return "No VIP numbers set.\nUse: VIP ADD +1XXXXXXXXXX"
		}
		return "VIP List:\n" + strings.Join(vips, "\n")

	case text == "SUMMARY":
		return s.callLog.Digest()

	case strings.HasPrefix(text, "LOOKUP "):
		return s.lookupNumber(ctx, normalizeNumber(text[7:]))

	default:
		return helpText
	}
}

func (s *Service) resolveRelay(ctx context.Context, kind string) string {
	var (
		display string
		ok      bool
	)

	switch kind {
	case "connect":
		display, ok = s.screener.ResolveRelayConnect(ctx)
	case "voicemail":
		display, ok = s.screener.ResolveRelayVoicemail(ctx)
	case "schedule":
		display, ok = s.screener.ResolveRelaySchedule(ctx)
	}

	if !ok {
		return "No calls currently waiting for your decision."
	}

	switch kind {
	case "connect":
		return fmt.Sprintf("Connecting %s now.", display)
	case "voicemail":
		return fmt.Sprintf("Sending %s to voicemail.", display)
	default:
		return fmt.Sprintf("Asking %s for their preferred callback time.", display)
	}
}

func (s *Service) status() string {
	quiet := "OFF"
	if s.screener.QuietHours() {
		quiet = "ON"
	}
	dnd := "OFF"
	if s.dir.DND() {
		dnd = "ON"
	}

	stats := s.dir.Stats()

	return fmt.Sprintf("Status:\nTime: %s\nDND: %s\nQuiet hours: %s (%d-%d)\nApproved names: %d\nVIP numbers: %d\nCallers remembered: %d\nCalls today: %d\nCalls waiting decision: %d\nScheduled callbacks: %d",
		s.nowString(), dnd, quiet,
		s.cfg.Screening.QuietStartHour, s.cfg.Screening.QuietEndHour,
		len(s.dir.ApprovedNames()), len(s.dir.VIPs()),
		stats.Total, s.callLog.CallsToday(), s.store.PendingCount(), s.book.Count())
}

func (s *Service) history(number string) string {
	rec, ok := s.dir.GetRecord(number)
	if !ok {
		return "No history found for " + number
	}

	name := rec.Name
	if name == "" {
		name = "unknown"
	}
	callerType := rec.CallerType
	if callerType == "" {
		callerType = "unknown"
	}
	purpose := rec.LastPurpose
	if purpose == "" {
		purpose = "unknown"
	}
	urgency := "unknown"
	if rec.LastUrgency != nil {
		urgency = fmt.Sprint(*rec.LastUrgency)
	}

	vms := "none"
	if len(rec.Voicemails) > 0 {
		lines := make([]string, 0, 3)
		start := max(0, len(rec.Voicemails)-3)
		for _, vm := range rec.Voicemails[start:] {
			lines = append(lines, "- "+vm.Summary)
		}
		vms = strings.Join(lines, "\n")
	}

	return fmt.Sprintf("%s\nName: %s\nType: %s\nCalls: %d\nLast purpose: %s\nLast urgency: %s\nLast: %s\nVoicemails:\n%s",
		number, name, callerType, rec.CallCount, purpose, urgency,
		rec.LastCall.Format("2006-01-02"), vms)
}

func (s *Service) note(args string) string {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) != 2 {
		return "Usage: NOTE +1XXXXXXXXXX your note here"
	}

	number := normalizeNumber(parts[0])
	note := strings.ToLower(parts[1])
	s.dir.AddNote(number, note)

	return fmt.Sprintf("Note added for %s:\n%s", number, note)
}

func (s *Service) stats() string {
	stats := s.dir.Stats()

	frequent := strings.Join(stats.FrequentCallers, ", ")
	if frequent == "" {
		frequent = "none yet"
	}

	return fmt.Sprintf("Stats:\nTotal callers known: %d\nSpam blocked: %d\nConnected: %d\nLeft voicemails: %d\nFrequent callers: %s",
		stats.Total, stats.SpamBlocked, stats.Forwarded, stats.VoicemailsLeft, frequent)
}

func (s *Service) lookupNumber(ctx context.Context, number string) string {
	verdict := s.lookup.Lookup(ctx, number)

	var biz string
	if verdict.BusinessName != "" {
		biz = "\nBusiness: " + verdict.BusinessName
	}
	summary := verdict.Summary
	if summary == "" {
		summary = "No info found."
	}

	return fmt.Sprintf("Lookup: %s\nSpam score: %d/10%s\n%s", number, verdict.SpamScore, biz, summary)
}

func (s *Service) nowString() string {
	return s.nowInLocation().Format("Monday, January 02 at 03:04 PM MST")
}

func normalizeNumber(raw string) string {
	number := strings.TrimSpace(raw)
	if strings.HasPrefix(number, "+") {
		return number
	}

	number = strings.NewReplacer("-", "", " ", "", "(", "", ")", "").Replace(number)

	return "+1" + number
}
