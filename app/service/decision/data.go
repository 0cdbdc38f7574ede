package decision

// Action is the closed set of outcomes a screening turn can produce.
type Action string

const (
	// ActionSpeak continues the conversation with one more exchange.
	ActionSpeak Action = "speak"
	// ActionConnect transfers the caller to the subscriber.
	ActionConnect Action = "connect"
	// ActionEscalate parks the caller and relays the decision to the operator.
	ActionEscalate Action = "escalate"
	// ActionSchedule books a callback at a caller-stated time.
	ActionSchedule Action = "schedule"
	// ActionVoicemail takes a message.
	ActionVoicemail Action = "voicemail"
	// ActionBlock ends the call as unwanted.
	ActionBlock Action = "block"
)

type CallerType string

const (
	TypeContractor CallerType = "contractor"
	TypeRecruiter  CallerType = "recruiter"
	TypeDoctor     CallerType = "doctor"
	TypeSales      CallerType = "sales"
	TypeLegal      CallerType = "legal"
	TypePersonal   CallerType = "personal"
	TypeBusiness   CallerType = "business"
	TypeMedia      CallerType = "media"
	TypeGovernment CallerType = "government"
	TypeUnknown    CallerType = "unknown"
)

type Utterance struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleCaller    = "user"
	RoleAssistant = "assistant"
)

// Slots are gathered incrementally and are never erased once set.
type Slots struct {
	Name       string
	Purpose    string
	Urgency    *int
	CallerType CallerType
}

// Merge applies slot updates additively; a null update never clears a known slot.
func (s *Slots) Merge(d *Decision) {
	if d.Name != nil && *d.Name != "" {
		s.Name = *d.Name
	}
	if d.Purpose != nil && *d.Purpose != "" {
		s.Purpose = *d.Purpose
	}
	if d.Urgency != nil {
		v := *d.Urgency
		s.Urgency = &v
	}
	if d.CallerType != nil && *d.CallerType != "" && CallerType(*d.CallerType) != TypeUnknown {
		s.CallerType = CallerType(*d.CallerType)
	}
}

type Decision struct {
	Action        Action  `json:"action"`
	Message       string  `json:"message"`
	Name          *string `json:"name"`
	Purpose       *string `json:"purpose"`
	Urgency       *int    `json:"urgency"`
	CallerType    *string `json:"caller_type"`
	ScheduledTime *string `json:"scheduled_time"`
}

// Fallback is the fail-closed decision used when the adapter itself errors:
// ask a clarifying question and keep listening, never end the call.
func Fallback() *Decision {
	return &Decision{
		Action:  ActionSpeak,
		Message: "I'm sorry, could you say that again? Who am I speaking with?",
	}
}

type ScreenRequest struct {
	CallerID      string
	History       []Utterance
	Known         Slots
	CallerContext string
	LookupContext string
	ApprovedNames []string
	CurrentTime   string
	Turn          int
	MaxTurns      int
}

type FollowupExchange struct {
	Caller    string `json:"caller"`
	Assistant string `json:"assistant"`
}

type Followup struct {
	Done     bool   `json:"done"`
	Question string `json:"question"`
}

type FollowupRequest struct {
	CallerType CallerType
	Transcript string
	Exchange   []FollowupExchange
	Turn       int
}

type LookupVerdict struct {
	IsSpam       bool   `json:"is_spam"`
	IsBusiness   bool   `json:"is_business"`
	BusinessName string `json:"business_name"`
	SpamScore    int    `json:"spam_score"`
	Summary      string `json:"summary"`
}

var followupQuestions = map[CallerType]string{
	TypeContractor: "What type of work are you quoting, and do you have a license and insurance?",
	TypeRecruiter:  "What is the role and the compensation range you're looking to fill?",
	TypeDoctor:     "Is this regarding a medical matter or an appointment?",
	TypeSales:      "What product or service are you offering, and was this call requested?",
	TypeLegal:      "Is this regarding an existing matter, and is it time sensitive?",
	TypePersonal:   "How do you know them personally, and is everything okay?",
	TypeBusiness:   "What company are you calling from, and what is the nature of the business?",
	TypeMedia:      "What publication or outlet are you with, and what is the story about?",
	TypeGovernment: "What agency or department are you calling from, and is this time sensitive?",
	TypeUnknown:    "Could you tell me a bit more about the nature of your call?",
}

// FollowupFor returns the type-specific probing question, defaulting to the
// generic one for unrecognized types.
func FollowupFor(t CallerType) string {
	if q, ok := followupQuestions[t]; ok {
		return q
	}

	return followupQuestions[TypeUnknown]
}
