package telnyx_test

import (
	"encoding/base64"
	"testing"

	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
)

func TestParseWebhookTranscription(t *testing.T) {
	body := []byte(`{
		"data": {
			"event_type": "call.transcription",
			"payload": {
				"call_control_id": "v3-abc",
				"from": "+15551234567",
				"to": "+16150000000",
				"direction": "incoming",
				"transcription_data": {
					"transcript": "Hi, this is Bob",
					"is_final": true
				}
			}
		}
	}`)

	ev, err := telnyx.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if ev.Type != telnyx.EventTranscription {
		t.Fatalf("unexpected type %q", ev.Type)
	}
	if ev.CCID != "v3-abc" || ev.CallerID != "+15551234567" {
		t.Fatalf("unexpected identifiers: %+v", ev)
	}
	if ev.Transcript != "Hi, this is Bob" || !ev.IsFinal {
		t.Fatalf("unexpected transcription fields: %+v", ev)
	}
}

func TestParseWebhookDecodesClientState(t *testing.T) {
	state := base64.StdEncoding.EncodeToString([]byte("relay_hold"))
	body := []byte(`{
		"data": {
			"event_type": "call.speak.ended",
			"payload": {
				"call_control_id": "v3-abc",
				"client_state": "` + state + `"
			}
		}
	}`)

	ev, err := telnyx.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if ev.Tag != telnyx.TagRelayHold {
		t.Fatalf("expected relay_hold tag, got %q", ev.Tag)
	}
}

func TestParseWebhookEmptyStateIsNoTag(t *testing.T) {
	body := []byte(`{"data": {"event_type": "call.answered", "payload": {"call_control_id": "v3-abc"}}}`)

	ev, err := telnyx.ParseWebhook(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if ev.Tag != telnyx.TagNone {
		t.Fatalf("expected no tag, got %q", ev.Tag)
	}
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	if _, err := telnyx.ParseWebhook([]byte("not json")); err == nil {
		t.Fatal("expected an error")
	}
}
