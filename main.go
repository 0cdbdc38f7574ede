package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/thescottlumley-debug/call-screener/app/client/telnyx"
	"github.com/thescottlumley-debug/call-screener/app/config"
	"github.com/thescottlumley-debug/call-screener/app/service/calllog"
	"github.com/thescottlumley-debug/call-screener/app/service/decision"
	"github.com/thescottlumley-debug/call-screener/app/service/directory"
	"github.com/thescottlumley-debug/call-screener/app/service/lookup"
	"github.com/thescottlumley-debug/call-screener/app/service/notify"
	"github.com/thescottlumley-debug/call-screener/app/service/operator"
	"github.com/thescottlumley-debug/call-screener/app/service/schedule"
	"github.com/thescottlumley-debug/call-screener/app/service/screening"
	"github.com/thescottlumley-debug/call-screener/app/service/session"
	"github.com/thescottlumley-debug/call-screener/app/service/webhook"
	"github.com/thescottlumley-debug/call-screener/app/util/mylog"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, telnyx.NewClient)
	do.Provide(di, decision.New)
	do.Provide(di, session.New)
	do.Provide(di, directory.New)
	do.Provide(di, lookup.New)
	do.Provide(di, calllog.New)
	do.Provide(di, schedule.New)
	do.Provide(di, notify.New)
	do.Provide(di, screening.New)
	do.Provide(di, operator.New)
	do.Provide(di, webhook.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*operator.Service](di).RunDigestLoop(appCtx)

	go func() {
		if err := do.MustInvoke[*webhook.Service](di).Run(appCtx); err != nil {
			log.Errorf("webhook server stopped: %v", err)
		}
	}()

	<-appCtx.Done()
}
