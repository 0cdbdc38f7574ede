package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "embed"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
	"github.com/thescottlumley-debug/call-screener/app/config"
)

const maxReasonDuration = 30 * time.Second

//go:embed screen_prompt.txt
var screenPromptTemplate string

//go:embed followup_prompt.txt
var followupPromptTemplate string

//go:embed summary_prompt.txt
var summaryPromptTemplate string

//go:embed caller_type_prompt.txt
var callerTypePromptTemplate string

//go:embed name_prompt.txt
var namePromptTemplate string

//go:embed lookup_prompt.txt
var lookupPromptTemplate string

var _ Adapter = (*Service)(nil)

type Service struct {
	cfg    *config.Config
	client *openai.Client
	model  string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	clientConfig := openai.DefaultConfig(cfg.OpenAI.Token)
	clientConfig.BaseURL = cfg.OpenAI.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: maxReasonDuration,
	}

	return &Service{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.OpenAI.Model,
	}, nil
}

func (s *Service) ScreenTurn(ctx context.Context, req *ScreenRequest) (*Decision, error) {
	gathered := make([]string, 0, 4)
	if req.Known.Name != "" {
		gathered = append(gathered, "name="+req.Known.Name)
	}
	if req.Known.Purpose != "" {
		gathered = append(gathered, "purpose="+req.Known.Purpose)
	}
	if req.Known.CallerType != "" {
		gathered = append(gathered, "type="+string(req.Known.CallerType))
	}
	if req.Known.Urgency != nil {
		gathered = append(gathered, fmt.Sprintf("urgency=%d/10", *req.Known.Urgency))
	}
	gatheredStr := "nothing yet"
	if len(gathered) > 0 {
		gatheredStr = strings.Join(gathered, ", ")
	}

	var typeFollowup string
	if req.Known.CallerType != "" && req.Known.Purpose == "" {
		typeFollowup = fmt.Sprintf("\nSince this is a %s, after getting their name ask: %q",
			req.Known.CallerType, FollowupFor(req.Known.CallerType))
	}

	system := renderTemplate(screenPromptTemplate, map[string]string{
		"assistant":      s.cfg.Screening.AssistantName,
		"subscriber":     s.cfg.Screening.SubscriberName,
		"now":            req.CurrentTime,
		"approved_names": strings.Join(req.ApprovedNames, ", "),
		"caller_id":      req.CallerID,
		"caller_context": req.CallerContext,
		"lookup_context": req.LookupContext,
		"turn":           fmt.Sprint(req.Turn + 1),
		"max_turns":      fmt.Sprint(req.MaxTurns),
		"gathered":       gatheredStr,
		"type_followup":  typeFollowup,
	})

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, u := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    u.Role,
			Content: u.Content,
		})
	}

	var result Decision
	if err := s.complete(ctx, messages, 150, 0.2, &result); err != nil {
		return nil, fmt.Errorf("screen turn: %w", err)
	}

	if result.Message == "" {
		result.Message = "Could you please repeat that?"
	}
	if result.Action == "" {
		result.Action = ActionSpeak
	}

	return &result, nil
}

func (s *Service) VoicemailFollowup(ctx context.Context, req *FollowupRequest) (*Followup, error) {
	callerType := req.CallerType
	if callerType == "" {
		callerType = TypeUnknown
	}

	exchange, err := json.Marshal(req.Exchange)
	if err != nil {
		return nil, fmt.Errorf("marshal exchange: %w", err)
	}

	prompt := renderTemplate(followupPromptTemplate, map[string]string{
		"assistant":   s.cfg.Screening.AssistantName,
		"subscriber":  s.cfg.Screening.SubscriberName,
		"caller_type": string(callerType),
		"transcript":  req.Transcript,
		"exchange":    string(exchange),
		"turn":        fmt.Sprint(req.Turn + 1),
	})

	var result Followup
	if err := s.completeUser(ctx, prompt, 80, 0.2, &result); err != nil {
		return nil, fmt.Errorf("voicemail followup: %w", err)
	}

	return &result, nil
}

func (s *Service) SummarizeVoicemail(ctx context.Context, transcript string) (string, error) {
	prompt := renderTemplate(summaryPromptTemplate, map[string]string{
		"transcript": transcript,
	})

	ctx, cancel := context.WithTimeout(ctx, maxReasonDuration)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: 150,
		Temperature:         0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summarize voicemail: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *Service) ClassifyCallerType(ctx context.Context, transcript, purpose string) (CallerType, error) {
	prompt := renderTemplate(callerTypePromptTemplate, map[string]string{
		"transcript": transcript,
		"purpose":    purpose,
	})

	var result struct {
		Type string `json:"type"`
	}
	if err := s.completeUser(ctx, prompt, 20, 0, &result); err != nil {
		return TypeUnknown, fmt.Errorf("classify caller type: %w", err)
	}

	if result.Type == "" {
		return TypeUnknown, nil
	}

	return CallerType(result.Type), nil
}

func (s *Service) ExtractName(ctx context.Context, transcript string) (string, error) {
	prompt := renderTemplate(namePromptTemplate, map[string]string{
		"transcript": transcript,
	})

	var result struct {
		Name *string `json:"name"`
	}
	if err := s.completeUser(ctx, prompt, 20, 0, &result); err != nil {
		return "", fmt.Errorf("extract name: %w", err)
	}

	if result.Name == nil {
		return "", nil
	}

	return *result.Name, nil
}

func (s *Service) InterpretLookup(ctx context.Context, number, searchText string) (*LookupVerdict, error) {
	prompt := renderTemplate(lookupPromptTemplate, map[string]string{
		"number":  number,
		"results": searchText,
	})

	var result LookupVerdict
	if err := s.completeUser(ctx, prompt, 80, 0, &result); err != nil {
		return nil, fmt.Errorf("interpret lookup: %w", err)
	}

	return &result, nil
}

func (s *Service) completeUser(ctx context.Context, prompt string, maxTokens int, temperature float32, target any) error {
	return s.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, maxTokens, temperature, target)
}

func (s *Service) complete(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32, target any) error {
	ctx, cancel := context.WithTimeout(ctx, maxReasonDuration)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               s.model,
		Messages:            messages,
		MaxCompletionTokens: maxTokens,
		Temperature:         temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("no chat completion found")
	}

	result := resp.Choices[0].Message.Content
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	if err = json.Unmarshal([]byte(result), target); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func renderTemplate(template string, values map[string]string) string {
	for key, value := range values {
		template = strings.ReplaceAll(template, "{"+key+"}", value)
	}

	return template
}
