package calllog_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/thescottlumley-debug/call-screener/app/service/calllog"
)

func TestAddAppliesDefaults(t *testing.T) {
	log := calllog.NewWithLocation(time.UTC)

	log.Add("+15551234567", "", "", "")

	if log.CallsToday() != 1 {
		t.Fatalf("expected 1 call today, got %d", log.CallsToday())
	}

	digest := log.Digest()
	if !strings.Contains(digest, "Unknown") {
		t.Fatalf("expected default name in digest: %q", digest)
	}
}

func TestDigestCountsByOutcome(t *testing.T) {
	log := calllog.NewWithLocation(time.UTC)

	log.Add("+15550000001", "Bob", "connect_whitelist", "approved contact")
	log.Add("+15550000002", "Dana", "connect_operator", "urgent matter")
	log.Add("+15550000003", "Mike", "voicemail", "quote")
	log.Add("+15550000004", "", "block_auto", "spam")
	log.Add("+15550000005", "Sam", "escalate", "contract")

	digest := log.Digest()
	if !strings.Contains(digest, "Total calls: 5") {
		t.Fatalf("unexpected total: %q", digest)
	}
	if !strings.Contains(digest, "Connected: 2") {
		t.Fatalf("unexpected connect count: %q", digest)
	}
	if !strings.Contains(digest, "Voicemails: 1") {
		t.Fatalf("unexpected voicemail count: %q", digest)
	}
	if !strings.Contains(digest, "Blocked: 1") {
		t.Fatalf("unexpected block count: %q", digest)
	}
	if !strings.Contains(digest, "Relayed: 1") {
		t.Fatalf("unexpected relay count: %q", digest)
	}
}

func TestDigestWithNoCalls(t *testing.T) {
	log := calllog.NewWithLocation(time.UTC)

	if !strings.Contains(log.Digest(), "No calls today.") {
		t.Fatalf("unexpected empty digest: %q", log.Digest())
	}
}

func TestLogIsCapped(t *testing.T) {
	log := calllog.NewWithLocation(time.UTC)

	for i := range 120 {
		log.Add(fmt.Sprintf("+1555%07d", i), "Caller", "voicemail", "test")
	}

	if got := log.CallsToday(); got != 100 {
		t.Fatalf("expected the log capped at 100, got %d", got)
	}
}
