package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/config"
)

// Service is the outbound half of the operator channel: SMS to the
// subscriber's real number.
type Service struct {
	cfg    *config.Config
	client *telnyx.Client
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:    do.MustInvoke[*config.Config](di),
		client: do.MustInvoke[*telnyx.Client](di),
	}, nil
}

func (s *Service) Notify(ctx context.Context, text string) error {
	if err := s.client.SendSMS(ctx, s.cfg.Telnyx.SubscriberNumber, text); err != nil {
		return fmt.Errorf("failed to notify subscriber: %w", err)
	}

	slog.Debug("Subscriber notified", "length", len(text))

	return nil
}
