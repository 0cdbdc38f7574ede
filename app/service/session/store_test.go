package session_test

import (
	"testing"

	"github.com/thescottlumley-debug/call-screener/app/service/session"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := session.NewStore()

	a := store.GetOrCreate("ccid-1", "+15551234567")
	b := store.GetOrCreate("ccid-1", "+15559999999")

	if a != b {
		t.Fatal("expected the same session for the same ccid")
	}
	if a.CallerID != "+15551234567" {
		t.Fatalf("late create must not overwrite caller id, got %q", a.CallerID)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Count())
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	store := session.NewStore()
	store.GetOrCreate("ccid-1", "+15551234567")

	store.Delete("ccid-1")

	if _, ok := store.Get("ccid-1"); ok {
		t.Fatal("session should be gone")
	}
	if store.Count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", store.Count())
	}
}

func TestPendingIsOnePerCaller(t *testing.T) {
	store := session.NewStore()

	store.AddPending("+15551111111", "ccid-1")
	store.AddPending("+15551111111", "ccid-2")

	if store.PendingCount() != 1 {
		t.Fatalf("expected 1 pending entry per caller, got %d", store.PendingCount())
	}

	entry, ok := store.PopOldestPending()
	if !ok || entry.CCID != "ccid-2" {
		t.Fatalf("re-add must keep the newest ccid, got %+v", entry)
	}
}

func TestPopOldestPendingOrder(t *testing.T) {
	store := session.NewStore()

	store.AddPending("+15551111111", "ccid-1")
	store.AddPending("+15552222222", "ccid-2")
	store.AddPending("+15553333333", "ccid-3")

	first, _ := store.PopOldestPending()
	second, _ := store.PopOldestPending()

	if first.CallerID != "+15551111111" || second.CallerID != "+15552222222" {
		t.Fatalf("expected oldest-first order, got %q then %q", first.CallerID, second.CallerID)
	}
}

func TestPopOldestPendingEmpty(t *testing.T) {
	store := session.NewStore()

	if _, ok := store.PopOldestPending(); ok {
		t.Fatal("expected no pending entries")
	}
}

func TestRemovePending(t *testing.T) {
	store := session.NewStore()
	store.AddPending("+15551111111", "ccid-1")

	if !store.RemovePending("+15551111111") {
		t.Fatal("expected removal to succeed")
	}
	if store.RemovePending("+15551111111") {
		t.Fatal("second removal should report nothing removed")
	}
	if store.PendingCount() != 0 {
		t.Fatalf("expected 0 pending, got %d", store.PendingCount())
	}
}
