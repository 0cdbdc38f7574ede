package decision_test

import (
	"testing"

	"github.com/thescottlumley-debug/call-screener/app/service/decision"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestSlotsMergeIsAdditive(t *testing.T) {
	slots := decision.Slots{Name: "Bob", Purpose: "a quote"}

	slots.Merge(&decision.Decision{
		Name:    nil,
		Purpose: strPtr(""),
		Urgency: intPtr(7),
	})

	if slots.Name != "Bob" {
		t.Fatalf("nil update must not clear name, got %q", slots.Name)
	}
	if slots.Purpose != "a quote" {
		t.Fatalf("empty update must not clear purpose, got %q", slots.Purpose)
	}
	if slots.Urgency == nil || *slots.Urgency != 7 {
		t.Fatalf("urgency not applied: %v", slots.Urgency)
	}
}

func TestSlotsMergeIgnoresUnknownCallerType(t *testing.T) {
	slots := decision.Slots{CallerType: decision.TypeContractor}

	slots.Merge(&decision.Decision{CallerType: strPtr("unknown")})

	if slots.CallerType != decision.TypeContractor {
		t.Fatalf("unknown must not overwrite a known type, got %q", slots.CallerType)
	}

	slots.Merge(&decision.Decision{CallerType: strPtr("sales")})

	if slots.CallerType != decision.TypeSales {
		t.Fatalf("expected sales, got %q", slots.CallerType)
	}
}

func TestFallbackKeepsTheCallAlive(t *testing.T) {
	dec := decision.Fallback()

	if dec.Action != decision.ActionSpeak {
		t.Fatalf("fallback must speak, got %q", dec.Action)
	}
	if dec.Message == "" {
		t.Fatal("fallback must carry a message")
	}
}

func TestFollowupForKnownType(t *testing.T) {
	q := decision.FollowupFor(decision.TypeContractor)

	if q == "" || q == decision.FollowupFor(decision.TypeUnknown) {
		t.Fatalf("expected a contractor-specific question, got %q", q)
	}
}

func TestFollowupForUnrecognizedTypeFallsBack(t *testing.T) {
	q := decision.FollowupFor(decision.CallerType("alien"))

	if q != decision.FollowupFor(decision.TypeUnknown) {
		t.Fatalf("expected the generic question, got %q", q)
	}
}
