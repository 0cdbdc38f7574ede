package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/config"
)

const apiBase = "https://api.telnyx.com/v2"

// Client drives Telnyx Call Control. Command failures are logged, not fatal:
// the state machine proceeds optimistically on most of them.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (c *Client) Answer(ctx context.Context, ccid string) error {
	return c.callAction(ctx, ccid, "answer", map[string]any{})
}

func (c *Client) Speak(ctx context.Context, ccid, text string, tag PromptTag) error {
	body := map[string]any{
		"payload":      text,
		"payload_type": "text",
		"voice":        "Polly.Joanna-Neural",
		"language":     "en-US",
	}
	if tag != TagNone {
		body["client_state"] = encodeTag(tag)
	}

	return c.callAction(ctx, ccid, "speak", body)
}

func (c *Client) StartTranscription(ctx context.Context, ccid string) error {
	return c.callAction(ctx, ccid, "transcription_start", map[string]any{
		"transcription_engine": "Deepgram",
		"transcription_model":  "flux",
		"language":             "en",
	})
}

func (c *Client) StopTranscription(ctx context.Context, ccid string) error {
	return c.callAction(ctx, ccid, "transcription_stop", map[string]any{})
}

func (c *Client) StartRecording(ctx context.Context, ccid string, tag PromptTag) error {
	return c.callAction(ctx, ccid, "record_start", map[string]any{
		"format":       "mp3",
		"channels":     "single",
		"play_beep":    true,
		"client_state": encodeTag(tag),
	})
}

func (c *Client) StopRecording(ctx context.Context, ccid string) error {
	return c.callAction(ctx, ccid, "record_stop", map[string]any{})
}

func (c *Client) Transfer(ctx context.Context, ccid, to string) error {
	return c.callAction(ctx, ccid, "transfer", map[string]any{"to": to})
}

func (c *Client) Hangup(ctx context.Context, ccid string) error {
	return c.callAction(ctx, ccid, "hangup", map[string]any{})
}

func (c *Client) callAction(ctx context.Context, ccid, action string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s body: %w", action, err)
	}

	url := fmt.Sprintf("%s/calls/%s/actions/%s", apiBase, ccid, action)

	status, respBody, err := c.post(ctx, url, data)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}

	if status >= 400 {
		// Telnyx answers 422 when transcription is already running.
		if status == http.StatusUnprocessableEntity && action == "transcription_start" {
			slog.Debug("Transcription already running", "ccid", ccid)
			return nil
		}

		return fmt.Errorf("%s returned %d: %s", action, status, respBody)
	}

	slog.Debug("Call action completed", "action", action, "status", status)

	return nil
}

func (c *Client) SendSMS(ctx context.Context, to, text string) error {
	data, err := json.Marshal(map[string]any{
		"from": c.cfg.Telnyx.Number,
		"to":   to,
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms body: %w", err)
	}

	status, respBody, err := c.post(ctx, apiBase+"/messages", data)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}

	if status >= 400 {
		return fmt.Errorf("sms returned %d: %s", status, respBody)
	}

	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Telnyx.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, string(respBody), nil
}
