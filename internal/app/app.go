// Package app собирает компоненты бота для обеих точек входа.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/driver_bot/internal/bot"
	"github.com/ivanoskov/driver_bot/internal/charts"
	"github.com/ivanoskov/driver_bot/internal/classifier"
	"github.com/ivanoskov/driver_bot/internal/config"
	"github.com/ivanoskov/driver_bot/internal/repository"
	"github.com/ivanoskov/driver_bot/internal/scheduler"
	"github.com/ivanoskov/driver_bot/internal/service"
	"github.com/ivanoskov/driver_bot/internal/session"
)

type App struct {
	Config    *config.Config
	Log       logrus.FieldLogger
	Repo      repository.Repository
	Sessions  *session.MemoryStore
	Bot       *bot.Bot
	Handler   *bot.Handler
	Scheduler *scheduler.ReminderScheduler

	closers []func()
}

// NewRepository открывает хранилище выбранного драйвера
func NewRepository(ctx context.Context, cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.DriverSupabase:
		repo, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	case config.DriverMemory:
		return repository.NewMemoryRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// New создает все компоненты. Telegram-бот нужен заранее: через него уходят ответы и напоминания.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	repo, closeRepo, err := NewRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageDriver, err)
	}

	tgBot, err := bot.NewBot(cfg.TelegramToken, cfg.DeliveryMaxChars, log)
	if err != nil {
		closeRepo()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return assemble(cfg, log, repo, tgBot, closeRepo), nil
}

func assemble(cfg *config.Config, log logrus.FieldLogger, repo repository.Repository, tgBot *bot.Bot, closeRepo func()) *App {
	sessions := session.NewMemoryStore(cfg.SessionTTL)

	var transcriber classifier.Transcriber
	if cfg.TranscriptionEnabled() {
		transcriber = classifier.NewWhisperTranscriber(cfg.OpenAIAPIKey)
	}

	handler := bot.NewHandler(bot.Deps{
		Tracker:           service.NewTracker(repo, cfg.Location()),
		Sessions:          sessions,
		Classifier:        classifier.NewAnthropicClassifier(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.Location()),
		Transcriber:       transcriber,
		Deliverer:         tgBot.Deliverer(),
		Images:            tgBot,
		Charts:            charts.NewChartGenerator(),
		BackgroundTimeout: cfg.BackgroundTimeout,
		Log:               log,
	})

	reminders := scheduler.NewReminderScheduler(repo, tgBot, scheduler.Config{
		Interval: cfg.ReminderInterval,
	}, log)

	return &App{
		Config:    cfg,
		Log:       log,
		Repo:      repo,
		Sessions:  sessions,
		Bot:       tgBot,
		Handler:   handler,
		Scheduler: reminders,
		closers:   []func(){closeRepo},
	}
}

// Close освобождает ресурсы после завершения фоновых задач
func (a *App) Close() {
	a.Handler.Wait()
	for _, closeFn := range a.closers {
		closeFn()
	}
}
