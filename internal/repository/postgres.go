package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/driver_bot/internal/model"
)

// DB описывает минимальный набор методов пула соединений, нужный репозиторию.
// Ему удовлетворяют *pgxpool.Pool и pgxmock.PgxPoolIface.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Суммы читаются как текст, чтобы не терять точность при переводе в decimal.
var (
	incomeColumns = []string{
		"id", "user_id", "amount::text", "description", "category", "source",
		"tax::text", "distance::text", "date", "message_id", "created_at",
	}
	expenseColumns = []string{
		"id", "user_id", "amount::text", "description", "category", "date", "message_id", "created_at",
	}
	reminderColumns = []string{
		"id", "user_id", "description", "date", "type", "message_id", "created_at",
	}
)

const transactionExistsSQL = `SELECT EXISTS (
	SELECT 1 FROM incomes WHERE user_id = $1 AND message_id = $2
	UNION ALL
	SELECT 1 FROM expenses WHERE user_id = $1 AND message_id = $2
)`

// PostgresRepository работает с PostgreSQL напрямую через pgx
type PostgresRepository struct {
	db   DB
	pool *pgxpool.Pool
}

// NewPostgresRepository открывает пул соединений по DSN
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRepository{db: pool, pool: pool}, nil
}

// NewPostgresRepositoryWithDB создает репозиторий поверх готового соединения
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close закрывает пул, если он был открыт этим репозиторием
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// withTx выполняет fn в одной транзакции
func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func exec(ctx context.Context, q querier, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	_, err = q.Exec(ctx, query, args...)
	return err
}

func (r *PostgresRepository) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	query, args, err := psql.
		Select("user_id", "total_income::text", "total_spent::text", "blocked", "COALESCE(active_vehicle_id, '')", "updated_at").
		From("user_stats").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var (
		st            model.UserStats
		income, spent string
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(&st.UserID, &income, &spent, &st.Blocked, &st.ActiveVehicleID, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	if st.TotalIncome, err = decimal.NewFromString(income); err != nil {
		return nil, fmt.Errorf("failed to parse total income: %w", err)
	}
	if st.TotalSpent, err = decimal.NewFromString(spent); err != nil {
		return nil, fmt.Errorf("failed to parse total spent: %w", err)
	}
	return &st, nil
}

// incrementStats создает строку агрегатов при первом обращении и прибавляет delta
func incrementStats(ctx context.Context, q querier, userID, column string, delta decimal.Decimal) error {
	b := psql.Insert("user_stats").
		Columns("user_id", column).
		Values(userID, delta).
		Suffix(fmt.Sprintf("ON CONFLICT (user_id) DO UPDATE SET %[1]s = user_stats.%[1]s + EXCLUDED.%[1]s, updated_at = now()", column))
	if err := exec(ctx, q, b); err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}

func (r *PostgresRepository) AddIncome(ctx context.Context, income *model.Income) error {
	income.GenerateID()
	if income.CreatedAt.IsZero() {
		income.CreatedAt = time.Now()
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		b := psql.Insert("incomes").
			Columns("id", "user_id", "amount", "description", "category", "source", "tax", "distance", "date", "message_id", "created_at").
			Values(income.ID, income.UserID, income.Amount, income.Description, income.Category, income.Source,
				income.Tax, income.Distance, income.Date, income.MessageID, income.CreatedAt)
		if err := exec(ctx, tx, b); err != nil {
			return fmt.Errorf("failed to create income: %w", err)
		}
		return incrementStats(ctx, tx, income.UserID, "total_income", income.Amount)
	})
}

func (r *PostgresRepository) AddExpense(ctx context.Context, expense *model.Expense) error {
	expense.GenerateID()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		b := psql.Insert("expenses").
			Columns("id", "user_id", "amount", "description", "category", "date", "message_id", "created_at").
			Values(expense.ID, expense.UserID, expense.Amount, expense.Description, expense.Category,
				expense.Date, expense.MessageID, expense.CreatedAt)
		if err := exec(ctx, tx, b); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}
		return incrementStats(ctx, tx, expense.UserID, "total_spent", expense.Amount)
	})
}

func (r *PostgresRepository) DeleteIncome(ctx context.Context, userID, messageID string) (*model.Income, error) {
	var deleted *model.Income
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		query, args, err := psql.Delete("incomes").
			Where(sq.Eq{"user_id": userID, "message_id": messageID}).
			Suffix("RETURNING " + strings.Join(incomeColumns, ", ")).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}
		inc, err := scanIncome(tx.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to delete income: %w", err)
		}
		deleted = inc
		return incrementStats(ctx, tx, userID, "total_income", inc.Amount.Neg())
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *PostgresRepository) DeleteExpense(ctx context.Context, userID, messageID string) (*model.Expense, error) {
	var deleted *model.Expense
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		query, args, err := psql.Delete("expenses").
			Where(sq.Eq{"user_id": userID, "message_id": messageID}).
			Suffix("RETURNING " + strings.Join(expenseColumns, ", ")).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}
		exp, err := scanExpense(tx.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}
		deleted = exp
		return incrementStats(ctx, tx, userID, "total_spent", exp.Amount.Neg())
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *PostgresRepository) TransactionMessageIDExists(ctx context.Context, userID, messageID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, transactionExistsSQL, userID, messageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check message id: %w", err)
	}
	return exists, nil
}

func applyFilter(b sq.SelectBuilder, filter model.TransactionFilter) sq.SelectBuilder {
	if filter.StartDate != nil {
		b = b.Where(sq.GtOrEq{"date": *filter.StartDate})
	}
	if filter.EndDate != nil {
		b = b.Where(sq.Lt{"date": *filter.EndDate})
	}
	if filter.Category != "" {
		b = b.Where(sq.ILike{"category": filter.Category})
	}
	if filter.Source != "" {
		b = b.Where(sq.ILike{"source": filter.Source})
	}
	return b
}

func (r *PostgresRepository) GetIncomes(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Income, error) {
	b := psql.Select(incomeColumns...).From("incomes").Where(sq.Eq{"user_id": userID})
	query, args, err := applyFilter(b, filter).OrderBy("date ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get incomes: %w", err)
	}
	defer rows.Close()

	incomes := make([]model.Income, 0)
	for rows.Next() {
		inc, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		incomes = append(incomes, *inc)
	}
	return incomes, rows.Err()
}

func (r *PostgresRepository) GetExpenses(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Expense, error) {
	filter.Source = ""
	b := psql.Select(expenseColumns...).From("expenses").Where(sq.Eq{"user_id": userID})
	query, args, err := applyFilter(b, filter).OrderBy("date ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]model.Expense, 0)
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *exp)
	}
	return expenses, rows.Err()
}

func (r *PostgresRepository) CreateReminder(ctx context.Context, reminder *model.Reminder) error {
	reminder.GenerateID()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}
	b := psql.Insert("reminders").
		Columns(reminderColumns...).
		Values(reminder.ID, reminder.UserID, reminder.Description, reminder.Date, reminder.Type, reminder.MessageID, reminder.CreatedAt)
	if err := exec(ctx, r.db, b); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteReminder(ctx context.Context, userID, messageID string) (*model.Reminder, error) {
	query, args, err := psql.Delete("reminders").
		Where(sq.Eq{"user_id": userID, "message_id": messageID}).
		Suffix("RETURNING " + strings.Join(reminderColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rem, err := scanReminder(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete reminder: %w", err)
	}
	return rem, nil
}

func (r *PostgresRepository) DeleteReminderByID(ctx context.Context, id string) error {
	query, args, err := psql.Delete("reminders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ReminderMessageIDExists(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM reminders WHERE message_id = $1)", messageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reminder id: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) queryReminders(ctx context.Context, b sq.SelectBuilder) ([]model.Reminder, error) {
	query, args, err := b.OrderBy("date ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders: %w", err)
	}
	defer rows.Close()

	reminders := make([]model.Reminder, 0)
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, *rem)
	}
	return reminders, rows.Err()
}

func (r *PostgresRepository) GetDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	b := psql.Select(reminderColumns...).From("reminders").Where(sq.LtOrEq{"date": now})
	return r.queryReminders(ctx, b)
}

func (r *PostgresRepository) GetUpcomingReminders(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error) {
	b := psql.Select(reminderColumns...).From("reminders").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Gt{"date": now})
	return r.queryReminders(ctx, b)
}

func (r *PostgresRepository) RegisterVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	vehicle.GenerateID()
	vehicle.IsActive = true
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = time.Now()
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		deactivate := psql.Update("vehicles").
			Set("is_active", false).
			Where(sq.Eq{"user_id": vehicle.UserID, "is_active": true})
		if err := exec(ctx, tx, deactivate); err != nil {
			return fmt.Errorf("failed to deactivate vehicles: %w", err)
		}

		insert := psql.Insert("vehicles").
			Columns("id", "user_id", "brand", "model", "year", "initial_mileage", "current_mileage", "is_active", "created_at").
			Values(vehicle.ID, vehicle.UserID, vehicle.Brand, vehicle.Model, vehicle.Year,
				vehicle.InitialMileage, vehicle.CurrentMileage, vehicle.IsActive, vehicle.CreatedAt)
		if err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to create vehicle: %w", err)
		}

		pointer := psql.Insert("user_stats").
			Columns("user_id", "active_vehicle_id").
			Values(vehicle.UserID, vehicle.ID).
			Suffix("ON CONFLICT (user_id) DO UPDATE SET active_vehicle_id = EXCLUDED.active_vehicle_id, updated_at = now()")
		if err := exec(ctx, tx, pointer); err != nil {
			return fmt.Errorf("failed to set active vehicle: %w", err)
		}
		return nil
	})
}

func scanIncome(row pgx.Row) (*model.Income, error) {
	var (
		inc           model.Income
		amount        string
		tax, distance *string
	)
	if err := row.Scan(&inc.ID, &inc.UserID, &amount, &inc.Description, &inc.Category, &inc.Source,
		&tax, &distance, &inc.Date, &inc.MessageID, &inc.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if inc.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if inc.Tax, err = optionalDecimal(tax); err != nil {
		return nil, err
	}
	if inc.Distance, err = optionalDecimal(distance); err != nil {
		return nil, err
	}
	return &inc, nil
}

func scanExpense(row pgx.Row) (*model.Expense, error) {
	var (
		exp    model.Expense
		amount string
	)
	if err := row.Scan(&exp.ID, &exp.UserID, &amount, &exp.Description, &exp.Category,
		&exp.Date, &exp.MessageID, &exp.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if exp.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return &exp, nil
}

func scanReminder(row pgx.Row) (*model.Reminder, error) {
	var rem model.Reminder
	if err := row.Scan(&rem.ID, &rem.UserID, &rem.Description, &rem.Date, &rem.Type, &rem.MessageID, &rem.CreatedAt); err != nil {
		return nil, err
	}
	return &rem, nil
}

func optionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", *s, err)
	}
	return &d, nil
}
