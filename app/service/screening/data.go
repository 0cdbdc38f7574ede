package screening

import (
	"context"
	"time"

	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/config"
	"github.com/thescottlumley-debug/call-screener/app/service/calllog"
	"github.com/thescottlumley-debug/call-screener/app/service/decision"
	"github.com/thescottlumley-debug/call-screener/app/service/directory"
	"github.com/thescottlumley-debug/call-screener/app/service/lookup"
	"github.com/thescottlumley-debug/call-screener/app/service/notify"
	"github.com/thescottlumley-debug/call-screener/app/service/schedule"
	"github.com/thescottlumley-debug/call-screener/app/service/session"
)

// ControlPlane is the imperative half of the telephony provider.
type ControlPlane interface {
	Answer(ctx context.Context, ccid string) error
	Speak(ctx context.Context, ccid, text string, tag telnyx.PromptTag) error
	StartTranscription(ctx context.Context, ccid string) error
	StopTranscription(ctx context.Context, ccid string) error
	StartRecording(ctx context.Context, ccid string, tag telnyx.PromptTag) error
	StopRecording(ctx context.Context, ccid string) error
	Transfer(ctx context.Context, ccid, to string) error
	Hangup(ctx context.Context, ccid string) error
}

// Notifier is the outbound operator channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NumberLookup resolves a number's reputation; it never blocks screening on failure.
type NumberLookup interface {
	Lookup(ctx context.Context, callerID string) *decision.LookupVerdict
}

const (
	spamBlockScore        = 9
	maxVoicemailFollowups = 2
	defaultRelayUrgency   = 5
)

var greetingEchoPhrases = []string{
	"ai assistant",
	"how may i help",
	"you have reached",
	"personal assistant",
	"thank you for calling",
}

var holdOptOutPhrases = []string{
	"voicemail",
	"message",
	"leave a message",
	"that's fine",
	"no problem",
	"okay",
}

// Service is the call-session state machine. It consumes telephony events,
// mutates sessions under their per-ccid lock and issues control-plane
// commands inline.
type Service struct {
	cfg      *config.Config
	store    *session.Store
	adapter  decision.Adapter
	control  ControlPlane
	notifier Notifier
	dir      *directory.Service
	lookup   NumberLookup
	callLog  *calllog.Service
	book     *schedule.Service

	loc     *time.Location
	nowFunc func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	loc, err := time.LoadLocation(cfg.Screening.Timezone)
	if err != nil {
		return nil, err
	}

	return NewEngine(
		cfg,
		do.MustInvoke[*session.Store](di),
		do.MustInvoke[*decision.Service](di),
		do.MustInvoke[*telnyx.Client](di),
		do.MustInvoke[*notify.Service](di),
		do.MustInvoke[*directory.Service](di),
		do.MustInvoke[*lookup.Service](di),
		do.MustInvoke[*calllog.Service](di),
		do.MustInvoke[*schedule.Service](di),
		loc,
	), nil
}

func NewEngine(
	cfg *config.Config,
	store *session.Store,
	adapter decision.Adapter,
	control ControlPlane,
	notifier Notifier,
	dir *directory.Service,
	numLookup NumberLookup,
	callLog *calllog.Service,
	book *schedule.Service,
	loc *time.Location,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		adapter:  adapter,
		control:  control,
		notifier: notifier,
		dir:      dir,
		lookup:   numLookup,
		callLog:  callLog,
		book:     book,
		loc:      loc,
		nowFunc:  time.Now,
	}
}
