// Package scheduler рассылает наступившие напоминания по таймеру, независимо от входящих сообщений.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/driver_bot/internal/delivery"
	"github.com/ivanoskov/driver_bot/internal/model"
	"github.com/ivanoskov/driver_bot/internal/repository"
)

const (
	DefaultInterval    = time.Minute
	defaultTickTimeout = 50 * time.Second
)

// ReminderStore описывает операции хранилища, нужные планировщику
type ReminderStore interface {
	GetDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	DeleteReminderByID(ctx context.Context, id string) error
}

// Config содержит параметры планировщика напоминаний
type Config struct {
	Interval    time.Duration
	TickTimeout time.Duration
	Clock       func() time.Time
	Format      func(model.Reminder) string
}

// TickResult содержит итог одного прохода
type TickResult struct {
	Due       int
	Delivered int
	Failed    int
	Skipped   bool
}

// ReminderScheduler раз в интервал отправляет наступившие напоминания.
// Напоминание удаляется только после успешной отправки, иначе повторяется на следующем проходе.
type ReminderScheduler struct {
	store  ReminderStore
	sender delivery.Sender
	cfg    Config
	log    logrus.FieldLogger

	runMu  sync.Mutex
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReminderScheduler создает планировщик
func NewReminderScheduler(store ReminderStore, sender delivery.Sender, cfg Config, log logrus.FieldLogger) *ReminderScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = defaultTickTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Format == nil {
		cfg.Format = DefaultFormat
	}
	return &ReminderScheduler{
		store:  store,
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

// DefaultFormat формирует текст уведомления
func DefaultFormat(r model.Reminder) string {
	return fmt.Sprintf("⏰ *Lembrete!*\n%s *%s:* %s", r.Emoji(), r.Type, r.Description)
}

// Start запускает цикл планировщика. Повторный вызов до Stop ничего не делает.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.WithField("interval", s.cfg.Interval.String()).Info("Scheduler.Start")
}

func (s *ReminderScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop останавливает цикл и ждет завершения текущего прохода не дольше timeout.
// Возвращает false, если проход не успел завершиться.
func (s *ReminderScheduler) Stop(timeout time.Duration) bool {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return true
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Scheduler.Stop")
		return true
	case <-time.After(timeout):
		s.log.Warn("Scheduler.Stop: timeout waiting for tick")
		return false
	}
}

// RunOnce выполняет один проход. Если предыдущий проход еще идет, новый пропускается.
func (s *ReminderScheduler) RunOnce(ctx context.Context) TickResult {
	if !s.runMu.TryLock() {
		s.log.Warn("Scheduler.Tick: previous tick still running")
		return TickResult{Skipped: true}
	}
	defer s.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TickTimeout)
	defer cancel()

	now := s.cfg.Clock()
	due, err := s.store.GetDueReminders(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("Scheduler.Tick: failed to fetch due reminders")
		return TickResult{}
	}

	result := TickResult{Due: len(due)}
	for _, reminder := range due {
		if ctx.Err() != nil {
			result.Failed += len(due) - result.Delivered - result.Failed
			break
		}
		if err := s.deliver(ctx, reminder); err != nil {
			result.Failed++
			s.log.WithError(err).WithFields(logrus.Fields{
				"user_id":     reminder.UserID,
				"reminder_id": reminder.ID,
			}).Error("Scheduler.Tick: reminder kept for retry")
			continue
		}
		result.Delivered++
	}

	if result.Due > 0 {
		s.log.WithFields(logrus.Fields{
			"due":       result.Due,
			"delivered": result.Delivered,
			"failed":    result.Failed,
		}).Info("Scheduler.Tick")
	}
	return result
}

func (s *ReminderScheduler) deliver(ctx context.Context, reminder model.Reminder) error {
	if err := s.sender.SendText(ctx, reminder.UserID, s.cfg.Format(reminder)); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	// Пользователь мог удалить напоминание, пока оно отправлялось
	if err := s.store.DeleteReminderByID(ctx, reminder.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete delivered reminder: %w", err)
	}
	return nil
}
