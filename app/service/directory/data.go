package directory

import (
	"time"

	"github.com/thescottlumley-debug/call-screener/app/service/decision"
)

const (
	maxNotes      = 10
	maxVoicemails = 5
)

type VoicemailNote struct {
	Date    time.Time `json:"date"`
	Summary string    `json:"summary"`
}

// Record is everything remembered about one caller number.
type Record struct {
	Name          string          `json:"name,omitempty"`
	FirstCall     time.Time       `json:"first_call"`
	LastCall      time.Time       `json:"last_call"`
	CallCount     int             `json:"call_count"`
	LastAction    string          `json:"last_action,omitempty"`
	LastPurpose   string          `json:"last_purpose,omitempty"`
	LastUrgency   *int            `json:"last_urgency,omitempty"`
	CallerType    string          `json:"caller_type,omitempty"`
	LookupSummary string          `json:"lookup_summary,omitempty"`
	Notes         []string        `json:"notes,omitempty"`
	Voicemails    []VoicemailNote `json:"voicemails,omitempty"`
}

// Update carries one write-through merge; empty fields leave the record as is.
type Update struct {
	Name             string
	Action           string
	Purpose          string
	Urgency          *int
	CallerType       decision.CallerType
	LookupSummary    string
	VoicemailSummary string
	IncrementCount   bool
}

type callerFile struct {
	Callers map[string]*Record `json:"callers"`
}

type contactsFile struct {
	ApprovedNames   []string `json:"approved_names"`
	ApprovedNumbers []string `json:"approved_numbers"`
}

type Stats struct {
	Total           int
	SpamBlocked     int
	Forwarded       int
	VoicemailsLeft  int
	FrequentCallers []string
}
