package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/ivanoskov/driver_bot/internal/model"
)

// SupabaseRepository работает с базой через PostgREST API Supabase.
// Изменения, затрагивающие агрегаты, выполняются хранимыми функциями ledger_*.
type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseRepository{
		client: client,
	}, nil
}

// rpcError описывает тело ответа PostgREST при ошибке
type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeRPC разбирает ответ хранимой функции.
// Rpc возвращает тело ответа либо текст ошибки транспорта, поэтому оба случая проверяются здесь.
func decodeRPC(name, body string, out any) error {
	body = strings.TrimSpace(body)
	if !json.Valid([]byte(body)) {
		return fmt.Errorf("rpc %s: %s", name, body)
	}

	var apiErr rpcError
	if err := json.Unmarshal([]byte(body), &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("rpc %s: %s (%s)", name, apiErr.Message, apiErr.Code)
	}

	if body == "null" {
		return ErrNotFound
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("rpc %s: failed to parse response: %w", name, err)
	}
	return nil
}

func (r *SupabaseRepository) rpc(name string, params map[string]any, out any) error {
	return decodeRPC(name, r.client.Rpc(name, "", params), out)
}

func timeParam(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (r *SupabaseRepository) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	data, _, err := r.client.From("user_stats").
		Select("user_id,total_income,total_spent,blocked,active_vehicle_id,updated_at", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	var rows []struct {
		model.UserStats
		ActiveVehicleID *string `json:"active_vehicle_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse user stats: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	st := rows[0].UserStats
	if rows[0].ActiveVehicleID != nil {
		st.ActiveVehicleID = *rows[0].ActiveVehicleID
	}
	return &st, nil
}

func (r *SupabaseRepository) AddIncome(ctx context.Context, income *model.Income) error {
	income.GenerateID()
	if income.CreatedAt.IsZero() {
		income.CreatedAt = time.Now()
	}
	if err := r.rpc("ledger_add_income", map[string]any{"p_income": income}, nil); err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) AddExpense(ctx context.Context, expense *model.Expense) error {
	expense.GenerateID()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	if err := r.rpc("ledger_add_expense", map[string]any{"p_expense": expense}, nil); err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) DeleteIncome(ctx context.Context, userID, messageID string) (*model.Income, error) {
	var inc model.Income
	err := r.rpc("ledger_delete_income", map[string]any{"p_user_id": userID, "p_message_id": messageID}, &inc)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete income: %w", err)
	}
	return &inc, nil
}

func (r *SupabaseRepository) DeleteExpense(ctx context.Context, userID, messageID string) (*model.Expense, error) {
	var exp model.Expense
	err := r.rpc("ledger_delete_expense", map[string]any{"p_user_id": userID, "p_message_id": messageID}, &exp)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}
	return &exp, nil
}

func (r *SupabaseRepository) exists(table string, eq map[string]string) (bool, error) {
	query := r.client.From(table).Select("id", "", false)
	for column, value := range eq {
		query = query.Eq(column, value)
	}
	data, _, err := query.Limit(1, "").Execute()
	if err != nil {
		return false, err
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (r *SupabaseRepository) TransactionMessageIDExists(ctx context.Context, userID, messageID string) (bool, error) {
	for _, table := range []string{"incomes", "expenses"} {
		found, err := r.exists(table, map[string]string{"user_id": userID, "message_id": messageID})
		if err != nil {
			return false, fmt.Errorf("failed to check message id: %w", err)
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func applySupabaseFilter(query *postgrest.FilterBuilder, filter model.TransactionFilter, withSource bool) *postgrest.FilterBuilder {
	if filter.StartDate != nil {
		query = query.Gte("date", timeParam(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Lt("date", timeParam(*filter.EndDate))
	}
	if filter.Category != "" {
		query = query.Ilike("category", filter.Category)
	}
	if withSource && filter.Source != "" {
		query = query.Ilike("source", filter.Source)
	}
	return query.Order("date", &postgrest.OrderOpts{Ascending: true})
}

func (r *SupabaseRepository) GetIncomes(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Income, error) {
	query := r.client.From("incomes").Select("*", "", false).Eq("user_id", userID)
	data, _, err := applySupabaseFilter(query, filter, true).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get incomes: %w", err)
	}

	incomes := make([]model.Income, 0)
	if err := json.Unmarshal(data, &incomes); err != nil {
		return nil, fmt.Errorf("failed to parse incomes: %w", err)
	}
	return incomes, nil
}

func (r *SupabaseRepository) GetExpenses(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Expense, error) {
	query := r.client.From("expenses").Select("*", "", false).Eq("user_id", userID)
	data, _, err := applySupabaseFilter(query, filter, false).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	expenses := make([]model.Expense, 0)
	if err := json.Unmarshal(data, &expenses); err != nil {
		return nil, fmt.Errorf("failed to parse expenses: %w", err)
	}
	return expenses, nil
}

func (r *SupabaseRepository) CreateReminder(ctx context.Context, reminder *model.Reminder) error {
	reminder.GenerateID()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}
	if _, _, err := r.client.From("reminders").Insert(reminder, false, "", "", "").Execute(); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) deleteReminders(query *postgrest.FilterBuilder) ([]model.Reminder, error) {
	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to delete reminder: %w", err)
	}
	var deleted []model.Reminder
	if err := json.Unmarshal(data, &deleted); err != nil {
		return nil, fmt.Errorf("failed to parse deleted reminder: %w", err)
	}
	if len(deleted) == 0 {
		return nil, ErrNotFound
	}
	return deleted, nil
}

func (r *SupabaseRepository) DeleteReminder(ctx context.Context, userID, messageID string) (*model.Reminder, error) {
	deleted, err := r.deleteReminders(r.client.From("reminders").
		Delete("representation", "").
		Eq("user_id", userID).
		Eq("message_id", messageID))
	if err != nil {
		return nil, err
	}
	return &deleted[0], nil
}

func (r *SupabaseRepository) DeleteReminderByID(ctx context.Context, id string) error {
	_, err := r.deleteReminders(r.client.From("reminders").
		Delete("representation", "").
		Eq("id", id))
	return err
}

func (r *SupabaseRepository) ReminderMessageIDExists(ctx context.Context, messageID string) (bool, error) {
	found, err := r.exists("reminders", map[string]string{"message_id": messageID})
	if err != nil {
		return false, fmt.Errorf("failed to check reminder id: %w", err)
	}
	return found, nil
}

func (r *SupabaseRepository) selectReminders(query *postgrest.FilterBuilder) ([]model.Reminder, error) {
	data, _, err := query.Order("date", &postgrest.OrderOpts{Ascending: true}).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders: %w", err)
	}
	reminders := make([]model.Reminder, 0)
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("failed to parse reminders: %w", err)
	}
	return reminders, nil
}

func (r *SupabaseRepository) GetDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	return r.selectReminders(r.client.From("reminders").
		Select("*", "", false).
		Lte("date", timeParam(now)))
}

func (r *SupabaseRepository) GetUpcomingReminders(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error) {
	return r.selectReminders(r.client.From("reminders").
		Select("*", "", false).
		Eq("user_id", userID).
		Gt("date", timeParam(now)))
}

func (r *SupabaseRepository) RegisterVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	vehicle.GenerateID()
	vehicle.IsActive = true
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = time.Now()
	}
	if err := r.rpc("ledger_register_vehicle", map[string]any{"p_vehicle": vehicle}, nil); err != nil {
		return fmt.Errorf("failed to register vehicle: %w", err)
	}
	return nil
}
