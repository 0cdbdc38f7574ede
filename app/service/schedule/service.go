package schedule

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
)

// Appointment is append-only: never mutated after creation. The requested
// time is the caller's literal words; no calendar parsing is attempted.
type Appointment struct {
	ID       string
	Name     string
	Number   string
	TimeStr  string
	Purpose  string
	BookedAt time.Time
}

type Service struct {
	mu           sync.Mutex
	appointments []Appointment
}

func New(_ *do.Injector) (*Service, error) {
	return NewBook(), nil
}

func NewBook() *Service {
	return &Service{}
}

func (s *Service) Book(name, number, timeStr, purpose string) Appointment {
	if name == "" {
		name = "Unknown"
	}
	if purpose == "" {
		purpose = "callback"
	}

	appt := Appointment{
		ID:       uuid.NewString(),
		Name:     name,
		Number:   number,
		TimeStr:  timeStr,
		Purpose:  purpose,
		BookedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.appointments = append(s.appointments, appt)
	s.mu.Unlock()

	return appt
}

func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.appointments)
}

func (s *Service) All() []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Appointment(nil), s.appointments...)
}

// Format lists every scheduled callback for the operator.
func (s *Service) Format() string {
	appts := s.All()

	if len(appts) == 0 {
		return "No callbacks currently scheduled."
	}

	lines := []string{"Scheduled Callbacks:"}
	for i, a := range appts {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - %s - Re: %s", i+1, a.Name, a.Number, a.TimeStr, a.Purpose))
	}

	return strings.Join(lines, "\n")
}
