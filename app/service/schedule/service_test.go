package schedule_test

import (
	"strings"
	"testing"

	"github.com/thescottlumley-debug/call-screener/app/service/schedule"
)

func TestBookStoresTimeVerbatim(t *testing.T) {
	book := schedule.NewBook()

	appt := book.Book("Bob", "+15551234567", "Thursday at 2pm", "a quote")

	if appt.TimeStr != "Thursday at 2pm" {
		t.Fatalf("time must be stored verbatim, got %q", appt.TimeStr)
	}
	if appt.ID == "" {
		t.Fatal("appointment needs an id")
	}
	if book.Count() != 1 {
		t.Fatalf("expected 1 appointment, got %d", book.Count())
	}
}

func TestBookAppliesDefaults(t *testing.T) {
	book := schedule.NewBook()

	appt := book.Book("", "+15551234567", "tomorrow", "")

	if appt.Name != "Unknown" {
		t.Fatalf("expected Unknown name, got %q", appt.Name)
	}
	if appt.Purpose != "callback" {
		t.Fatalf("expected callback purpose, got %q", appt.Purpose)
	}
}

func TestFormatListsAppointments(t *testing.T) {
	book := schedule.NewBook()

	if !strings.Contains(book.Format(), "No callbacks") {
		t.Fatalf("unexpected empty listing: %q", book.Format())
	}

	book.Book("Bob", "+15551234567", "Thursday at 2pm", "a quote")
	book.Book("Dana", "+15559876543", "Friday morning", "contract")

	listing := book.Format()
	if !strings.Contains(listing, "1. Bob") || !strings.Contains(listing, "2. Dana") {
		t.Fatalf("unexpected listing: %q", listing)
	}
	if !strings.Contains(listing, "Thursday at 2pm") {
		t.Fatalf("expected verbatim time in listing: %q", listing)
	}
}
