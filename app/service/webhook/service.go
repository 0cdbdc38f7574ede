package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/config"
	"github.com/thescottlumley-debug/call-screener/app/service/operator"
	"github.com/thescottlumley-debug/call-screener/app/service/screening"
	"golang.org/x/sync/errgroup"
)

// Service exposes the two inbound webhooks: telephony events and operator SMS.
type Service struct {
	cfg         *config.Config
	screening   *screening.Service
	operatorSvc *operator.Service
	app         *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	s := &Service{
		cfg:         do.MustInvoke[*config.Config](di),
		screening:   do.MustInvoke[*screening.Service](di),
		operatorSvc: do.MustInvoke[*operator.Service](di),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.app.Get("/", s.handleHealth)
	s.app.Post("/webhook", s.handleCallEvent)
	s.app.Post("/sms", s.handleSMS)

	return s, nil
}

func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.app.Listen(s.cfg.Server.Addr)
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.app.ShutdownWithTimeout(5 * time.Second)
	})

	return g.Wait()
}

func (s *Service) handleHealth(c *fiber.Ctx) error {
	return c.SendString("Call screener is running.")
}

func (s *Service) handleCallEvent(c *fiber.Ctx) error {
	ev, err := telnyx.ParseWebhook(c.Body())
	if err != nil {
		slog.Warn("Malformed call webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "bad request"})
	}

	slog.Debug("Call event", "type", ev.Type, "from", ev.CallerID)

	s.screening.HandleEvent(c.UserContext(), ev)

	return c.JSON(fiber.Map{"status": "ok"})
}

type smsEnvelope struct {
	Data struct {
		Payload struct {
			From json.RawMessage `json:"from"`
			Text string          `json:"text"`
		} `json:"payload"`
	} `json:"data"`
}

func (s *Service) handleSMS(c *fiber.Ctx) error {
	var env smsEnvelope
	if err := json.Unmarshal(c.Body(), &env); err != nil {
		slog.Warn("Malformed sms webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "bad request"})
	}

	s.operatorSvc.HandleCommand(c.UserContext(), parseFrom(env.Data.Payload.From), env.Data.Payload.Text)

	return c.JSON(fiber.Map{"status": "ok"})
}

// The provider sends "from" either as a plain string or as an object with a
// phone_number field.
func parseFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asObject struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject.PhoneNumber
	}

	return ""
}
