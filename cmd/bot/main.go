package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivanoskov/driver_bot/internal/app"
	"github.com/ivanoskov/driver_bot/internal/config"
	"github.com/ivanoskov/driver_bot/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Setup("info", "json").WithError(err).Fatal("LoadConfig")
	}
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("app.New")
	}
	defer a.Close()

	if cfg.ReminderEnabled {
		a.Scheduler.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Bot.Start(gctx, a.Handler)
	})
	g.Go(func() error {
		return a.Sessions.Run(gctx, cfg.SessionSweepInterval, func(removed int) {
			log.WithField("removed", removed).Debug("Sessions.Sweep")
		})
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Bot.Stopped")
	}
	if cfg.ReminderEnabled && !a.Scheduler.Stop(shutdownTimeout) {
		log.Warn("Scheduler.Stop.Timeout")
	}
	log.Info("Bot.Shutdown")
}
