package decision_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/config"
	"github.com/thescottlumley-debug/call-screener/app/service/decision"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestService(t *testing.T, serverURL string) *decision.Service {
	t.Helper()

	cfg := &config.Config{}
	cfg.OpenAI.BaseURL = serverURL
	cfg.OpenAI.Token = "test-token"
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.Screening.SubscriberName = "Scott"
	cfg.Screening.AssistantName = "ARIA"

	di := do.New()
	do.ProvideValue(di, cfg)

	svc, err := decision.New(di)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	return svc
}

func TestScreenTurnParsesFencedResponse(t *testing.T) {
	server := completionServer(t, "```json\n{\"action\": \"connect\", \"message\": \"Connecting you now.\", \"name\": \"Dana\", \"urgency\": 9}\n```")
	defer server.Close()

	svc := newTestService(t, server.URL)

	dec, err := svc.ScreenTurn(context.Background(), &decision.ScreenRequest{
		CallerID: "+15551234567",
		History:  []decision.Utterance{{Role: decision.RoleCaller, Content: "It's Dana, this is urgent"}},
		MaxTurns: 8,
	})
	if err != nil {
		t.Fatalf("screen turn failed: %v", err)
	}

	if dec.Action != decision.ActionConnect {
		t.Fatalf("unexpected action %q", dec.Action)
	}
	if dec.Name == nil || *dec.Name != "Dana" {
		t.Fatalf("unexpected name: %v", dec.Name)
	}
	if dec.Urgency == nil || *dec.Urgency != 9 {
		t.Fatalf("unexpected urgency: %v", dec.Urgency)
	}
}

func TestScreenTurnFillsDefaults(t *testing.T) {
	server := completionServer(t, "{}")
	defer server.Close()

	svc := newTestService(t, server.URL)

	dec, err := svc.ScreenTurn(context.Background(), &decision.ScreenRequest{MaxTurns: 8})
	if err != nil {
		t.Fatalf("screen turn failed: %v", err)
	}

	if dec.Action != decision.ActionSpeak {
		t.Fatalf("empty action must default to speak, got %q", dec.Action)
	}
	if dec.Message == "" {
		t.Fatal("empty message must be replaced")
	}
}

func TestClassifyCallerType(t *testing.T) {
	server := completionServer(t, `{"type": "sales"}`)
	defer server.Close()

	svc := newTestService(t, server.URL)

	got, err := svc.ClassifyCallerType(context.Background(), "I'm offering an extended warranty", "warranty offer")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}

	if got != decision.TypeSales {
		t.Fatalf("unexpected type %q", got)
	}
}

func TestScreenTurnPropagatesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	if _, err := svc.ScreenTurn(context.Background(), &decision.ScreenRequest{MaxTurns: 8}); err == nil {
		t.Fatal("expected an error")
	}
}
