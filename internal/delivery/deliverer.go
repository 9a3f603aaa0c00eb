package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Лимит Telegram 4096 символов, оставляем запас под разметку
const DefaultMaxChars = 4000

// Sender отправляет одно текстовое сообщение пользователю
type Sender interface {
	SendText(ctx context.Context, userID, text string) error
}

// ImageSender отправляет изображение с подписью
type ImageSender interface {
	SendImage(ctx context.Context, userID string, png []byte, caption string) error
}

// Deliverer отправляет ответы любой длины
type Deliverer struct {
	sender   Sender
	maxChars int
	log      logrus.FieldLogger
}

// NewDeliverer создает Deliverer. maxChars <= 0 означает DefaultMaxChars.
func NewDeliverer(sender Sender, maxChars int, log logrus.FieldLogger) *Deliverer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Deliverer{sender: sender, maxChars: maxChars, log: log}
}

// Deliver отправляет текст одной или несколькими частями строго по очереди.
// Следующая часть уходит только после успешной отправки предыдущей.
func (d *Deliverer) Deliver(ctx context.Context, userID, text string) error {
	chunks := Split(text, d.maxChars)
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.sender.SendText(ctx, userID, chunk); err != nil {
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	if len(chunks) > 1 {
		d.log.WithFields(logrus.Fields{
			"user_id": userID,
			"chunks":  len(chunks),
		}).Debug("Deliverer.Deliver")
	}
	return nil
}
