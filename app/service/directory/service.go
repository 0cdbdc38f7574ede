package directory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

var (
	callersFilePath  = filepath.Join("data", "callers.json")
	contactsFilePath = filepath.Join("data", "contacts.json")
)

// Service is the caller knowledge base: per-number records, the whitelist of
// approved names and numbers, the VIP list, and the do-not-disturb flag.
// Records persist to a JSON file; saves are best-effort and logged on failure.
type Service struct {
	persist bool

	mu       sync.RWMutex
	callers  map[string]*Record
	contacts contactsFile
	vip      []string
	dnd      bool
}

func New(_ *do.Injector) (*Service, error) {
	if err := os.MkdirAll("data", 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &Service{
		persist: true,
		callers: make(map[string]*Record),
	}

	if err := s.loadCallers(); err != nil {
		return nil, err
	}
	if err := s.loadContacts(); err != nil {
		return nil, err
	}

	return s, nil
}

// NewInMemory skips file persistence entirely.
func NewInMemory() *Service {
	return &Service{
		callers: make(map[string]*Record),
	}
}

func (s *Service) loadCallers() error {
	data, err := os.ReadFile(callersFilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read callers file: %w", err)
	}

	var file callerFile
	if err = json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse callers file: %w", err)
	}

	if file.Callers != nil {
		s.callers = file.Callers
	}

	return nil
}

func (s *Service) loadContacts() error {
	data, err := os.ReadFile(contactsFilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read contacts file: %w", err)
	}

	if err = json.Unmarshal(data, &s.contacts); err != nil {
		return fmt.Errorf("failed to parse contacts file: %w", err)
	}

	return nil
}

func (s *Service) saveCallersLocked() {
	if !s.persist {
		return
	}

	data, err := json.MarshalIndent(callerFile{Callers: s.callers}, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal callers", "error", err)
		return
	}

	if err = os.WriteFile(callersFilePath, data, 0644); err != nil {
		slog.Error("Failed to save callers", "error", err)
	}
}

func (s *Service) saveContactsLocked() {
	if !s.persist {
		return
	}

	data, err := json.MarshalIndent(s.contacts, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal contacts", "error", err)
		return
	}

	if err = os.WriteFile(contactsFilePath, data, 0644); err != nil {
		slog.Error("Failed to save contacts", "error", err)
	}
}

// GetRecord returns a copy of the caller's record.
func (s *Service) GetRecord(callerID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.callers[callerID]
	if !ok {
		return Record{}, false
	}

	return *rec, true
}

// Update merges new knowledge into the caller's record. Known values are
// never cleared by empty updates.
func (s *Service) Update(callerID string, upd Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	rec, ok := s.callers[callerID]
	if !ok {
		rec = &Record{FirstCall: now}
		s.callers[callerID] = rec
	}

	rec.LastCall = now
	if upd.IncrementCount {
		rec.CallCount++
	}
	if upd.Name != "" {
		rec.Name = upd.Name
	}
	if upd.Action != "" {
		rec.LastAction = upd.Action
	}
	if upd.Purpose != "" {
		rec.LastPurpose = upd.Purpose
	}
	if upd.Urgency != nil {
		v := *upd.Urgency
		rec.LastUrgency = &v
	}
	if upd.CallerType != "" {
		rec.CallerType = string(upd.CallerType)
	}
	if upd.LookupSummary != "" {
		rec.LookupSummary = upd.LookupSummary
	}
	if upd.VoicemailSummary != "" {
		rec.Voicemails = append(rec.Voicemails, VoicemailNote{Date: now, Summary: upd.VoicemailSummary})
		if len(rec.Voicemails) > maxVoicemails {
			rec.Voicemails = rec.Voicemails[len(rec.Voicemails)-maxVoicemails:]
		}
	}

	s.saveCallersLocked()
}

func (s *Service) AddNote(callerID, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	rec, ok := s.callers[callerID]
	if !ok {
		rec = &Record{FirstCall: now, LastCall: now}
		s.callers[callerID] = rec
	}

	rec.Notes = append(rec.Notes, fmt.Sprintf("[%s] %s", now.Format("2006-01-02"), note))
	if len(rec.Notes) > maxNotes {
		rec.Notes = rec.Notes[len(rec.Notes)-maxNotes:]
	}

	s.saveCallersLocked()
}

// RelationshipSummary builds the caller-context line fed into screening prompts.
func (s *Service) RelationshipSummary(callerID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.callers[callerID]
	if !ok {
		return ""
	}

	name := rec.Name
	if name == "" {
		name = "Unknown"
	}

	relationship := "occasional caller"
	switch {
	case rec.CallCount >= 10:
		relationship = "frequent caller"
	case rec.CallCount >= 3:
		relationship = "returning caller"
	}

	callerType := rec.CallerType
	if callerType == "" {
		callerType = "unknown"
	}
	purpose := rec.LastPurpose
	if purpose == "" {
		purpose = "unknown reason"
	}

	summary := fmt.Sprintf("%s is a %s (%d total calls, first on %s, last on %s). Type: %s. Last called about: %s.",
		name, relationship, rec.CallCount,
		rec.FirstCall.Format("2006-01-02"), rec.LastCall.Format("2006-01-02"),
		callerType, purpose)

	if rec.LastUrgency != nil {
		summary += fmt.Sprintf(" Last urgency: %d/10.", *rec.LastUrgency)
	}
	if len(rec.Notes) > 0 {
		start := max(0, len(rec.Notes)-3)
		summary += " Notes: " + strings.Join(rec.Notes[start:], "; ") + "."
	}
	if len(rec.Voicemails) > 0 {
		summary += fmt.Sprintf(" Last voicemail: %q.", rec.Voicemails[len(rec.Voicemails)-1].Summary)
	}

	return summary
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: len(s.callers)}

	for number, rec := range s.callers {
		if rec.LastAction == "block" {
			stats.SpamBlocked++
		}
		if strings.Contains(rec.LastAction, "connect") {
			stats.Forwarded++
		}
		if len(rec.Voicemails) > 0 {
			stats.VoicemailsLeft++
		}
		if rec.CallCount >= 3 {
			display := rec.Name
			if display == "" {
				display = number
			}
			stats.FrequentCallers = append(stats.FrequentCallers, display)
		}
	}

	stats.FrequentCallers = pie.Top(stats.FrequentCallers, 5)

	return stats
}

// NameApproved reports whether an utterance mentions an approved contact name.
func (s *Service) NameApproved(text string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowered := strings.ToLower(strings.TrimSpace(text))

	return pie.Any(s.contacts.ApprovedNames, func(name string) bool {
		n := strings.ToLower(name)
		return strings.Contains(lowered, n) || strings.Contains(n, lowered)
	})
}

func (s *Service) NumberApproved(number string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return pie.Contains(s.contacts.ApprovedNumbers, number)
}

func (s *Service) ApprovedNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.contacts.ApprovedNames...)
}

func (s *Service) AddApprovedName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pie.Contains(s.contacts.ApprovedNames, name) {
		return false
	}

	s.contacts.ApprovedNames = append(s.contacts.ApprovedNames, name)
	s.saveContactsLocked()

	return true
}

func (s *Service) AddNumber(number string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pie.Contains(s.contacts.ApprovedNumbers, number) {
		return false
	}

	s.contacts.ApprovedNumbers = append(s.contacts.ApprovedNumbers, number)
	s.saveContactsLocked()

	return true
}

func (s *Service) RemoveNumber(number string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.contacts.ApprovedNumbers)
	s.contacts.ApprovedNumbers = pie.FilterNot(s.contacts.ApprovedNumbers, func(n string) bool {
		return n == number
	})

	if len(s.contacts.ApprovedNumbers) == before {
		return false
	}

	s.saveContactsLocked()

	return true
}

func (s *Service) IsVIP(number string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return pie.Contains(s.vip, number)
}

func (s *Service) AddVIP(number string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pie.Contains(s.vip, number) {
		return false
	}

	s.vip = append(s.vip, number)

	return true
}

func (s *Service) RemoveVIP(number string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.vip)
	s.vip = pie.FilterNot(s.vip, func(n string) bool { return n == number })

	return len(s.vip) != before
}

func (s *Service) VIPs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.vip...)
}

func (s *Service) SetDND(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dnd = on
	slog.Info("DND mode changed", "on", on)
}

func (s *Service) DND() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dnd
}
