package calllog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/config"
)

const maxEntries = 100

type Entry struct {
	Time     time.Time
	CallerID string
	Name     string
	Action   string
	Purpose  string
}

// Service keeps the rolling log of screened calls used for the daily digest.
type Service struct {
	loc *time.Location

	mu      sync.Mutex
	entries []Entry
	nowFunc func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	loc, err := time.LoadLocation(cfg.Screening.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Screening.Timezone, err)
	}

	return NewWithLocation(loc), nil
}

func NewWithLocation(loc *time.Location) *Service {
	return &Service{
		loc:     loc,
		nowFunc: time.Now,
	}
}

func (s *Service) Add(callerID, name, action, purpose string) {
	if name == "" {
		name = "Unknown"
	}
	if action == "" {
		action = "unknown"
	}
	if purpose == "" {
		purpose = "unknown"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		Time:     s.nowFunc().In(s.loc),
		CallerID: callerID,
		Name:     name,
		Action:   action,
		Purpose:  purpose,
	})

	if len(s.entries) > maxEntries {
		s.entries = s.entries[len(s.entries)-maxEntries:]
	}
}

func (s *Service) CallsToday() int {
	return len(s.todayEntries())
}

// Digest builds the daily summary text sent to the subscriber.
func (s *Service) Digest() string {
	now := s.nowFunc().In(s.loc)
	today := s.todayEntries()

	if len(today) == 0 {
		return fmt.Sprintf("Daily Summary - %s\nNo calls today.", now.Format("January 02"))
	}

	count := func(substr string) int {
		return len(pie.Filter(today, func(e Entry) bool {
			return strings.Contains(e.Action, substr)
		}))
	}

	lines := []string{
		fmt.Sprintf("Daily Summary - %s", now.Format("Monday, January 02")),
		fmt.Sprintf("Total calls: %d  |  Connected: %d  |  Voicemails: %d  |  Blocked: %d  |  Relayed: %d",
			len(today), count("connect"), count("voicemail"), count("block"), count("escalate")),
		"",
	}

	start := max(0, len(today)-10)
	for _, e := range today[start:] {
		lines = append(lines, fmt.Sprintf("%s - %s - %s", e.Time.Format("03:04 PM"), e.Name, e.Purpose))
	}

	return strings.Join(lines, "\n")
}

func (s *Service) todayEntries() []Entry {
	now := s.nowFunc().In(s.loc)
	y, m, d := now.Date()

	s.mu.Lock()
	defer s.mu.Unlock()

	return pie.Filter(s.entries, func(e Entry) bool {
		ey, em, ed := e.Time.Date()
		return ey == y && em == m && ed == d
	})
}
