package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/service/decision"
)

const defaultSearchBase = "https://api.duckduckgo.com/"

var nonDigits = regexp.MustCompile(`\D`)

// Service answers "who is this number" with a cached reputation verdict.
// Lookups never fail the caller-facing flow: any error degrades to an
// unknown-caller verdict.
type Service struct {
	adapter    decision.Adapter
	httpClient *http.Client
	searchBase string

	mu    sync.Mutex
	cache map[string]*decision.LookupVerdict
}

func New(di *do.Injector) (*Service, error) {
	return NewWithAdapter(do.MustInvoke[*decision.Service](di), defaultSearchBase), nil
}

func NewWithAdapter(adapter decision.Adapter, searchBase string) *Service {
	return &Service{
		adapter:    adapter,
		searchBase: searchBase,
		httpClient: &http.Client{
			Timeout: 4 * time.Second,
		},
		cache: make(map[string]*decision.LookupVerdict),
	}
}

func (s *Service) Lookup(ctx context.Context, callerID string) *decision.LookupVerdict {
	s.mu.Lock()
	if cached, ok := s.cache[callerID]; ok {
		s.mu.Unlock()
		slog.Debug("Lookup cache hit", "number", callerID)
		return cached
	}
	s.mu.Unlock()

	verdict := s.lookupRemote(ctx, callerID)

	s.mu.Lock()
	s.cache[callerID] = verdict
	s.mu.Unlock()

	return verdict
}

func (s *Service) lookupRemote(ctx context.Context, callerID string) *decision.LookupVerdict {
	raw, err := s.search(ctx, callerID)
	if err != nil {
		slog.Warn("Number search failed", "number", callerID, "error", err)
		return unknownVerdict()
	}

	verdict, err := s.adapter.InterpretLookup(ctx, callerID, raw)
	if err != nil {
		slog.Warn("Lookup interpretation failed", "number", callerID, "error", err)
		return unknownVerdict()
	}

	slog.Info("Number lookup completed",
		"number", callerID,
		"spam", verdict.IsSpam,
		"score", verdict.SpamScore,
		"business", verdict.BusinessName)

	return verdict
}

func (s *Service) search(ctx context.Context, callerID string) (string, error) {
	query := fmt.Sprintf("phone number %s who called spam scam business", formatNumber(callerID))

	searchURL := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1",
		s.searchBase, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CallScreener/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}

	var data struct {
		AbstractText  string `json:"AbstractText"`
		Answer        string `json:"Answer"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err = json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse search response: %w", err)
	}

	parts := []string{data.AbstractText, data.Answer}
	for i, topic := range data.RelatedTopics {
		if i >= 3 {
			break
		}
		parts = append(parts, topic.Text)
	}

	raw := strings.TrimSpace(strings.Join(parts, " "))
	if raw == "" {
		raw = "No public information found for this number."
	}
	if len(raw) > 600 {
		raw = raw[:600]
	}

	return raw, nil
}

func formatNumber(callerID string) string {
	digits := nonDigits.ReplaceAllString(callerID, "")
	if strings.HasPrefix(digits, "1") && len(digits) == 11 {
		digits = digits[1:]
	}

	if len(digits) != 10 {
		return callerID
	}

	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

func unknownVerdict() *decision.LookupVerdict {
	return &decision.LookupVerdict{
		Summary: "Lookup unavailable - treat as unknown caller.",
	}
}
