package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ivanoskov/driver_bot/internal/model"
)

// MemoryRepository хранит данные в памяти процесса.
// Используется в тестах и для локального запуска без базы данных.
type MemoryRepository struct {
	mu        sync.RWMutex
	stats     map[string]*model.UserStats
	incomes   []model.Income
	expenses  []model.Expense
	reminders []model.Reminder
	vehicles  []model.Vehicle
}

// NewMemoryRepository создает пустое хранилище в памяти
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stats: make(map[string]*model.UserStats),
	}
}

func (r *MemoryRepository) userStats(userID string) *model.UserStats {
	st, ok := r.stats[userID]
	if !ok {
		st = &model.UserStats{UserID: userID}
		r.stats[userID] = st
	}
	return st
}

func (r *MemoryRepository) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.stats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// SetBlocked выставляет флаг блокировки пользователя
func (r *MemoryRepository) SetBlocked(userID string, blocked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userStats(userID).Blocked = blocked
}

func (r *MemoryRepository) AddIncome(ctx context.Context, income *model.Income) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	income.GenerateID()
	if income.CreatedAt.IsZero() {
		income.CreatedAt = time.Now()
	}
	r.incomes = append(r.incomes, *income)
	st := r.userStats(income.UserID)
	st.TotalIncome = st.TotalIncome.Add(income.Amount)
	st.UpdatedAt = income.CreatedAt
	return nil
}

func (r *MemoryRepository) AddExpense(ctx context.Context, expense *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	expense.GenerateID()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	r.expenses = append(r.expenses, *expense)
	st := r.userStats(expense.UserID)
	st.TotalSpent = st.TotalSpent.Add(expense.Amount)
	st.UpdatedAt = expense.CreatedAt
	return nil
}

func (r *MemoryRepository) DeleteIncome(ctx context.Context, userID, messageID string) (*model.Income, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, inc := range r.incomes {
		if inc.UserID == userID && inc.MessageID == messageID {
			r.incomes = append(r.incomes[:i], r.incomes[i+1:]...)
			st := r.userStats(userID)
			st.TotalIncome = st.TotalIncome.Sub(inc.Amount)
			return &inc, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) DeleteExpense(ctx context.Context, userID, messageID string) (*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, exp := range r.expenses {
		if exp.UserID == userID && exp.MessageID == messageID {
			r.expenses = append(r.expenses[:i], r.expenses[i+1:]...)
			st := r.userStats(userID)
			st.TotalSpent = st.TotalSpent.Sub(exp.Amount)
			return &exp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) TransactionMessageIDExists(ctx context.Context, userID, messageID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inc := range r.incomes {
		if inc.UserID == userID && inc.MessageID == messageID {
			return true, nil
		}
	}
	for _, exp := range r.expenses {
		if exp.UserID == userID && exp.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) GetIncomes(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Income, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Income, 0)
	for _, inc := range r.incomes {
		if inc.UserID == userID && filter.Matches(inc.Date, inc.Category, inc.Source) {
			result = append(result, inc)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (r *MemoryRepository) GetExpenses(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Expense, 0)
	for _, exp := range r.expenses {
		if exp.UserID == userID && filter.Matches(exp.Date, exp.Category, "") {
			result = append(result, exp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (r *MemoryRepository) CreateReminder(ctx context.Context, reminder *model.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminder.GenerateID()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}
	r.reminders = append(r.reminders, *reminder)
	return nil
}

func (r *MemoryRepository) DeleteReminder(ctx context.Context, userID, messageID string) (*model.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rem := range r.reminders {
		if rem.UserID == userID && rem.MessageID == messageID {
			r.reminders = append(r.reminders[:i], r.reminders[i+1:]...)
			return &rem, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) DeleteReminderByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rem := range r.reminders {
		if rem.ID == id {
			r.reminders = append(r.reminders[:i], r.reminders[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) ReminderMessageIDExists(ctx context.Context, messageID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rem := range r.reminders {
		if rem.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) GetDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Reminder, 0)
	for _, rem := range r.reminders {
		if rem.IsDue(now) {
			result = append(result, rem)
		}
	}
	sortReminders(result)
	return result, nil
}

func (r *MemoryRepository) GetUpcomingReminders(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Reminder, 0)
	for _, rem := range r.reminders {
		if rem.UserID == userID && rem.Date.After(now) {
			result = append(result, rem)
		}
	}
	sortReminders(result)
	return result, nil
}

func (r *MemoryRepository) RegisterVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vehicle.GenerateID()
	vehicle.IsActive = true
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = time.Now()
	}
	for i := range r.vehicles {
		if r.vehicles[i].UserID == vehicle.UserID {
			r.vehicles[i].IsActive = false
		}
	}
	r.vehicles = append(r.vehicles, *vehicle)
	r.userStats(vehicle.UserID).ActiveVehicleID = vehicle.ID
	return nil
}

// Vehicles возвращает автомобили пользователя
func (r *MemoryRepository) Vehicles(userID string) []model.Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Vehicle, 0)
	for _, v := range r.vehicles {
		if v.UserID == userID {
			result = append(result, v)
		}
	}
	return result
}

func sortReminders(reminders []model.Reminder) {
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].Date.Before(reminders[j].Date)
	})
}
