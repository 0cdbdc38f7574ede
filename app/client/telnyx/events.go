package telnyx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventCallInitiated EventType = "call.initiated"
	EventCallAnswered  EventType = "call.answered"
	EventSpeakEnded    EventType = "call.speak.ended"
	EventTranscription EventType = "call.transcription"
	EventRecordSaved   EventType = "call.record.saved"
	EventHangup        EventType = "call.hangup"
)

// PromptTag correlates a speak.ended event with the prompt that produced it.
// It travels through the control plane's client_state field.
type PromptTag string

const (
	TagNone            PromptTag = ""
	TagVoicemailPrompt PromptTag = "voicemail_prompt"
	TagRecording       PromptTag = "recording_voicemail"
	TagRelayHold       PromptTag = "relay_hold"
	TagScreened        PromptTag = "screened"
	TagBriefing        PromptTag = "briefing"
)

type Event struct {
	Type        EventType
	CCID        string
	CallerID    string
	To          string
	Direction   string
	Tag         PromptTag
	Transcript  string
	IsFinal     bool
	HangupCause string
}

type webhookEnvelope struct {
	Data struct {
		EventType string `json:"event_type"`
		Payload   struct {
			CallControlID string `json:"call_control_id"`
			From          string `json:"from"`
			To            string `json:"to"`
			Direction     string `json:"direction"`
			ClientState   string `json:"client_state"`
			HangupCause   string `json:"hangup_cause"`

			TranscriptionData struct {
				Transcript string `json:"transcript"`
				IsFinal    bool   `json:"is_final"`
			} `json:"transcription_data"`
		} `json:"payload"`
	} `json:"data"`
}

func ParseWebhook(body []byte) (*Event, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse webhook body: %w", err)
	}

	p := env.Data.Payload

	return &Event{
		Type:        EventType(env.Data.EventType),
		CCID:        p.CallControlID,
		CallerID:    p.From,
		To:          p.To,
		Direction:   p.Direction,
		Tag:         decodeTag(p.ClientState),
		Transcript:  p.TranscriptionData.Transcript,
		IsFinal:     p.TranscriptionData.IsFinal,
		HangupCause: p.HangupCause,
	}, nil
}

func encodeTag(tag PromptTag) string {
	return base64.StdEncoding.EncodeToString([]byte(tag))
}

func decodeTag(s string) PromptTag {
	if s == "" {
		return TagNone
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return PromptTag(s)
	}

	return PromptTag(decoded)
}
