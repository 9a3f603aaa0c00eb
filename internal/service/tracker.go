package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/driver_bot/internal/model"
	"github.com/ivanoskov/driver_bot/internal/repository"
)

const (
	// Час, на который ставится напоминание, если указана только дата
	defaultReminderHour = 9

	// Смещение не дальше года вперед
	maxRelativeMinutes = 366 * 24 * 60
)

// Tracker предоставляет операции над учетом водителя
type Tracker struct {
	repo  repository.Repository
	loc   *time.Location
	now   func() time.Time
	newID IDGenerator
}

// NewTracker создает новый экземпляр Tracker
func NewTracker(repo repository.Repository, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{
		repo:  repo,
		loc:   loc,
		now:   time.Now,
		newID: RandomShortID,
	}
}

// SetClock подменяет источник текущего времени
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// SetIDGenerator подменяет генератор коротких идентификаторов
func (t *Tracker) SetIDGenerator(gen IDGenerator) {
	t.newID = gen
}

// Location возвращает часовой пояс, в котором считаются месяцы и даты
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// Now возвращает текущее время в часовом поясе трекера
func (t *Tracker) Now() time.Time {
	return t.now().In(t.loc)
}

// IsBlocked проверяет флаг блокировки пользователя
func (t *Tracker) IsBlocked(ctx context.Context, userID string) (bool, error) {
	st, err := t.repo.GetUserStats(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get user stats: %w", err)
	}
	return st.Blocked, nil
}

// IncomeInput содержит данные нового дохода
type IncomeInput struct {
	Amount      *decimal.Decimal
	Description string
	Category    string
	Source      string
	Tax         *decimal.Decimal
	Distance    *decimal.Decimal
}

// ExpenseInput содержит данные нового расхода
type ExpenseInput struct {
	Amount      *decimal.Decimal
	Description string
	Category    string
}

func positive(d *decimal.Decimal) bool {
	return d != nil && d.IsPositive()
}

func (t *Tracker) transactionID(ctx context.Context, userID string) (string, error) {
	return t.uniqueID(ctx, func(ctx context.Context, id string) (bool, error) {
		return t.repo.TransactionMessageIDExists(ctx, userID, id)
	})
}

// AddIncome сохраняет доход и увеличивает итог доходов пользователя.
// Для категории Corrida обязательна положительная дистанция.
func (t *Tracker) AddIncome(ctx context.Context, userID string, in IncomeInput) (*model.Income, error) {
	if !positive(in.Amount) {
		return nil, ErrInvalidAmount
	}
	category := model.NormalizeIncomeCategory(in.Category)
	if category == model.IncomeCategoryRide && !positive(in.Distance) {
		return nil, ErrDistanceRequired
	}

	messageID, err := t.transactionID(ctx, userID)
	if err != nil {
		return nil, err
	}

	income := &model.Income{
		UserID:      userID,
		Amount:      *in.Amount,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Source:      model.NormalizeIncomeSource(in.Source),
		Distance:    in.Distance,
		Date:        t.Now(),
		MessageID:   messageID,
	}
	if positive(in.Tax) {
		income.Tax = in.Tax
	}
	if err := t.repo.AddIncome(ctx, income); err != nil {
		return nil, fmt.Errorf("failed to add income: %w", err)
	}
	return income, nil
}

// AddExpense сохраняет расход и увеличивает итог расходов пользователя
func (t *Tracker) AddExpense(ctx context.Context, userID string, in ExpenseInput) (*model.Expense, error) {
	if !positive(in.Amount) {
		return nil, ErrInvalidAmount
	}

	messageID, err := t.transactionID(ctx, userID)
	if err != nil {
		return nil, err
	}

	expense := &model.Expense{
		UserID:      userID,
		Amount:      *in.Amount,
		Description: strings.TrimSpace(in.Description),
		Category:    model.NormalizeExpenseCategory(in.Category),
		Date:        t.Now(),
		MessageID:   messageID,
	}
	if err := t.repo.AddExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to add expense: %w", err)
	}
	return expense, nil
}

// DeletedTransaction описывает удаленную запись
type DeletedTransaction struct {
	Kind      model.TransactionKind
	MessageID string
	Amount    decimal.Decimal
}

// DeleteTransaction удаляет доход, а если его нет, расход с тем же идентификатором
func (t *Tracker) DeleteTransaction(ctx context.Context, userID, messageID string) (*DeletedTransaction, error) {
	messageID = model.CleanMessageID(messageID)
	if messageID == "" {
		return nil, ErrMessageIDRequired
	}

	income, err := t.repo.DeleteIncome(ctx, userID, messageID)
	if err == nil {
		return &DeletedTransaction{Kind: model.KindIncome, MessageID: income.MessageID, Amount: income.Amount}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to delete income: %w", err)
	}

	expense, err := t.repo.DeleteExpense(ctx, userID, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}
	return &DeletedTransaction{Kind: model.KindExpense, MessageID: expense.MessageID, Amount: expense.Amount}, nil
}

// ReminderInput содержит данные нового напоминания. Нужна либо дата, либо смещение в минутах.
type ReminderInput struct {
	Description     string
	Date            string
	RelativeMinutes *int
	Type            string
}

// AddReminder сохраняет напоминание на момент строго в будущем
func (t *Tracker) AddReminder(ctx context.Context, userID string, in ReminderInput) (*model.Reminder, error) {
	now := t.Now()
	at, err := t.reminderTime(in, now)
	if err != nil {
		return nil, err
	}
	if !at.After(now) {
		return nil, ErrReminderInPast
	}

	messageID, err := t.uniqueID(ctx, t.repo.ReminderMessageIDExists)
	if err != nil {
		return nil, err
	}

	reminder := &model.Reminder{
		UserID:      userID,
		Description: strings.TrimSpace(in.Description),
		Date:        at,
		Type:        model.NormalizeReminderType(in.Type),
		MessageID:   messageID,
	}
	if err := t.repo.CreateReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return reminder, nil
}

var localDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// reminderTime вычисляет момент напоминания.
// Дата без смещения считается местным временем настроенного часового пояса.
func (t *Tracker) reminderTime(in ReminderInput, now time.Time) (time.Time, error) {
	if in.RelativeMinutes != nil {
		if *in.RelativeMinutes > maxRelativeMinutes {
			return time.Time{}, fmt.Errorf("%w: %d minutes ahead", ErrInvalidReminderDate, *in.RelativeMinutes)
		}
		return now.Add(time.Duration(*in.RelativeMinutes) * time.Minute), nil
	}

	raw := strings.TrimSpace(in.Date)
	if raw == "" {
		return time.Time{}, ErrReminderDateRequired
	}
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at.In(t.loc), nil
	}
	for _, layout := range localDateLayouts {
		if at, err := time.ParseInLocation(layout, raw, t.loc); err == nil {
			return at, nil
		}
	}
	if day, err := time.ParseInLocation("2006-01-02", raw, t.loc); err == nil {
		return day.Add(defaultReminderHour * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReminderDate, raw)
}

// DeleteReminder удаляет напоминание пользователя по идентификатору
func (t *Tracker) DeleteReminder(ctx context.Context, userID, messageID string) (*model.Reminder, error) {
	messageID = model.CleanMessageID(messageID)
	if messageID == "" {
		return nil, ErrMessageIDRequired
	}
	reminder, err := t.repo.DeleteReminder(ctx, userID, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete reminder: %w", err)
	}
	return reminder, nil
}

// ListReminders возвращает будущие напоминания пользователя по возрастанию даты
func (t *Tracker) ListReminders(ctx context.Context, userID string) ([]model.Reminder, error) {
	reminders, err := t.repo.GetUpcomingReminders(ctx, userID, t.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

// RegisterVehicle сохраняет автомобиль и делает его активным
func (t *Tracker) RegisterVehicle(ctx context.Context, userID string, draft model.VehicleDraft) (*model.Vehicle, error) {
	vehicle := &model.Vehicle{
		UserID:         userID,
		Brand:          draft.Brand,
		Model:          draft.Model,
		Year:           draft.Year,
		InitialMileage: draft.Mileage,
		CurrentMileage: draft.Mileage,
	}
	if err := t.repo.RegisterVehicle(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to register vehicle: %w", err)
	}
	return vehicle, nil
}
