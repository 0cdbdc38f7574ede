package operator

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/config"
	"github.com/thescottlumley-debug/call-screener/app/service/calllog"
	"github.com/thescottlumley-debug/call-screener/app/service/decision"
	"github.com/thescottlumley-debug/call-screener/app/service/directory"
	"github.com/thescottlumley-debug/call-screener/app/service/lookup"
	"github.com/thescottlumley-debug/call-screener/app/service/notify"
	"github.com/thescottlumley-debug/call-screener/app/service/schedule"
	"github.com/thescottlumley-debug/call-screener/app/service/screening"
	"github.com/thescottlumley-debug/call-screener/app/service/session"
)

// Screener is the slice of the state machine the operator channel drives.
type Screener interface {
	ResolveRelayConnect(ctx context.Context) (string, bool)
	ResolveRelayVoicemail(ctx context.Context) (string, bool)
	ResolveRelaySchedule(ctx context.Context) (string, bool)
	QuietHours() bool
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type NumberLookup interface {
	Lookup(ctx context.Context, callerID string) *decision.LookupVerdict
}

// Service consumes the inbound half of the operator channel: short text
// commands from the subscriber's number.
type Service struct {
	cfg      *config.Config
	screener Screener
	notifier Notifier
	dir      *directory.Service
	store    *session.Store
	book     *schedule.Service
	callLog  *calllog.Service
	lookup   NumberLookup

	loc *time.Location
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	loc, err := time.LoadLocation(cfg.Screening.Timezone)
	if err != nil {
		return nil, err
	}

	return NewService(
		cfg,
		do.MustInvoke[*screening.Service](di),
		do.MustInvoke[*notify.Service](di),
		do.MustInvoke[*directory.Service](di),
		do.MustInvoke[*session.Store](di),
		do.MustInvoke[*schedule.Service](di),
		do.MustInvoke[*calllog.Service](di),
		do.MustInvoke[*lookup.Service](di),
		loc,
	), nil
}

func (s *Service) nowInLocation() time.Time {
	return time.Now().In(s.loc)
}

// RunDigestLoop sends the daily call digest at the configured local hour.
func (s *Service) RunDigestLoop(ctx context.Context) {
	if s.cfg.Screening.DigestHour < 0 {
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastSent string

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.nowInLocation()
			day := now.Format("2006-01-02")

			if now.Hour() != s.cfg.Screening.DigestHour || day == lastSent {
				continue
			}

			lastSent = day

			if err := s.notifier.Notify(ctx, s.callLog.Digest()); err != nil {
				slog.Error("Failed to send daily digest", "error", err)
			}
		}
	}
}

func NewService(
	cfg *config.Config,
	screener Screener,
	notifier Notifier,
	dir *directory.Service,
	store *session.Store,
	book *schedule.Service,
	callLog *calllog.Service,
	numLookup NumberLookup,
	loc *time.Location,
) *Service {
	return &Service{
		cfg:      cfg,
		screener: screener,
		notifier: notifier,
		dir:      dir,
		store:    store,
		book:     book,
		callLog:  callLog,
		lookup:   numLookup,
		loc:      loc,
	}
}
