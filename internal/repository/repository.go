package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ivanoskov/driver_bot/internal/model"
)

// ErrNotFound возвращается, когда запись не найдена
var ErrNotFound = errors.New("record not found")

// Repository описывает хранилище учетных записей бота.
// Каждая операция, меняющая запись и агрегаты пользователя, выполняется атомарно.
type Repository interface {
	// Пользователи
	GetUserStats(ctx context.Context, userID string) (*model.UserStats, error)

	// Доходы и расходы
	AddIncome(ctx context.Context, income *model.Income) error
	AddExpense(ctx context.Context, expense *model.Expense) error
	DeleteIncome(ctx context.Context, userID, messageID string) (*model.Income, error)
	DeleteExpense(ctx context.Context, userID, messageID string) (*model.Expense, error)
	TransactionMessageIDExists(ctx context.Context, userID, messageID string) (bool, error)
	GetIncomes(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Income, error)
	GetExpenses(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Expense, error)

	// Напоминания
	CreateReminder(ctx context.Context, reminder *model.Reminder) error
	DeleteReminder(ctx context.Context, userID, messageID string) (*model.Reminder, error)
	DeleteReminderByID(ctx context.Context, id string) error
	ReminderMessageIDExists(ctx context.Context, messageID string) (bool, error)
	GetDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	GetUpcomingReminders(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error)

	// Автомобили
	RegisterVehicle(ctx context.Context, vehicle *model.Vehicle) error
}
