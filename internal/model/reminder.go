package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Типы напоминаний
const (
	ReminderPayment     = "Pagamento"
	ReminderMaintenance = "Manutenção"
	ReminderDocument    = "Documento"
	ReminderOther       = "Outro"
)

var reminderTypes = []string{ReminderPayment, ReminderMaintenance, ReminderDocument, ReminderOther}

var reminderEmoji = map[string]string{
	ReminderPayment:     "💳",
	ReminderMaintenance: "🔧",
	ReminderDocument:    "📄",
	ReminderOther:       "🗓️",
}

// Reminder представляет запланированное напоминание пользователя
type Reminder struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	MessageID   string    `json:"message_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerateID генерирует новый UUID для напоминания, если он еще не установлен
func (r *Reminder) GenerateID() {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
}

// IsDue сообщает, наступило ли время напоминания
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.Date.After(now)
}

// Emoji возвращает значок для типа напоминания
func (r *Reminder) Emoji() string {
	if e, ok := reminderEmoji[r.Type]; ok {
		return e
	}
	return reminderEmoji[ReminderOther]
}

// NormalizeReminderType приводит тип напоминания к одному из допустимых
func NormalizeReminderType(t string) string {
	t = strings.TrimSpace(t)
	for _, v := range reminderTypes {
		if strings.EqualFold(v, t) {
			return v
		}
	}
	return ReminderOther
}

// ReminderTypes возвращает допустимые типы напоминаний
func ReminderTypes() []string {
	return append([]string(nil), reminderTypes...)
}
