package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/driver_bot/internal/model"
)

const (
	defaultReportDays = 7
	maxReportDays     = 90
)

// SummaryQuery задает месяц и необязательный фильтр сводки
type SummaryQuery struct {
	Month    string
	Source   string
	Category string
}

// Summary содержит итоги месяца. При фильтре по платформе считается только доход,
// при фильтре по категории только расход.
type Summary struct {
	Month    MonthWindow
	Source   string
	Category string
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// Profit возвращает разницу доходов и расходов
func (s *Summary) Profit() decimal.Decimal {
	return s.Income.Sub(s.Expenses)
}

// Empty сообщает, что за месяц нет ни одной подходящей записи
func (s *Summary) Empty() bool {
	return s.Income.IsZero() && s.Expenses.IsZero()
}

// BreakdownItem содержит сумму по одной категории или платформе
type BreakdownItem struct {
	Name  string
	Total decimal.Decimal
}

// Breakdown содержит суммы месяца, сгруппированные по категориям или платформам
type Breakdown struct {
	Month MonthWindow
	Items []BreakdownItem
	Total decimal.Decimal
}

// DetailEntry описывает одну запись в подробном отчете
type DetailEntry struct {
	Description string
	Amount      decimal.Decimal
	MessageID   string
	Date        time.Time
}

// DetailGroup содержит записи одной категории или платформы
type DetailGroup struct {
	Name    string
	Entries []DetailEntry
}

// Details содержит подробный список записей за месяц
type Details struct {
	Kind   model.ReportKind
	Month  MonthWindow
	Groups []DetailGroup
}

// DailyProfit содержит доходы и расходы за один день
type DailyProfit struct {
	Date    time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Profit возвращает прибыль дня
func (d DailyProfit) Profit() decimal.Decimal {
	return d.Income.Sub(d.Expense)
}

func (t *Tracker) month(month string) (MonthWindow, error) {
	return ResolveMonth(month, t.now(), t.loc)
}

// Summary считает итоги месяца
func (t *Tracker) Summary(ctx context.Context, userID string, q SummaryQuery) (*Summary, error) {
	window, err := t.month(q.Month)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Month: window}

	switch {
	case q.Source != "":
		summary.Source = model.NormalizeIncomeSource(q.Source)
		filter := window.Filter()
		filter.Source = summary.Source
		if summary.Income, err = t.sumIncomes(ctx, userID, filter); err != nil {
			return nil, err
		}
	case q.Category != "":
		summary.Category = model.NormalizeExpenseCategory(q.Category)
		filter := window.Filter()
		filter.Category = summary.Category
		if summary.Expenses, err = t.sumExpenses(ctx, userID, filter); err != nil {
			return nil, err
		}
	default:
		if summary.Income, err = t.sumIncomes(ctx, userID, window.Filter()); err != nil {
			return nil, err
		}
		if summary.Expenses, err = t.sumExpenses(ctx, userID, window.Filter()); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

func (t *Tracker) sumIncomes(ctx context.Context, userID string, filter model.TransactionFilter) (decimal.Decimal, error) {
	incomes, err := t.repo.GetIncomes(ctx, userID, filter)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get incomes: %w", err)
	}
	total := decimal.Zero
	for _, inc := range incomes {
		total = total.Add(inc.Amount)
	}
	return total, nil
}

func (t *Tracker) sumExpenses(ctx context.Context, userID string, filter model.TransactionFilter) (decimal.Decimal, error) {
	expenses, err := t.repo.GetExpenses(ctx, userID, filter)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get expenses: %w", err)
	}
	total := decimal.Zero
	for _, exp := range expenses {
		total = total.Add(exp.Amount)
	}
	return total, nil
}

// ExpensesByCategory группирует расходы месяца по категориям, большие суммы первыми
func (t *Tracker) ExpensesByCategory(ctx context.Context, userID, month string) (*Breakdown, error) {
	window, err := t.month(month)
	if err != nil {
		return nil, err
	}
	expenses, err := t.repo.GetExpenses(ctx, userID, window.Filter())
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, exp := range expenses {
		totals[groupName(exp.Category)] = totals[groupName(exp.Category)].Add(exp.Amount)
	}
	return newBreakdown(window, totals), nil
}

// IncomesBySource группирует доходы месяца по платформам, большие суммы первыми
func (t *Tracker) IncomesBySource(ctx context.Context, userID, month string) (*Breakdown, error) {
	window, err := t.month(month)
	if err != nil {
		return nil, err
	}
	incomes, err := t.repo.GetIncomes(ctx, userID, window.Filter())
	if err != nil {
		return nil, fmt.Errorf("failed to get incomes: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, inc := range incomes {
		totals[groupName(inc.Source)] = totals[groupName(inc.Source)].Add(inc.Amount)
	}
	return newBreakdown(window, totals), nil
}

func groupName(name string) string {
	if name == "" {
		return model.Other
	}
	return name
}

func newBreakdown(window MonthWindow, totals map[string]decimal.Decimal) *Breakdown {
	b := &Breakdown{Month: window, Items: make([]BreakdownItem, 0, len(totals)), Total: decimal.Zero}
	for name, total := range totals {
		b.Items = append(b.Items, BreakdownItem{Name: name, Total: total})
		b.Total = b.Total.Add(total)
	}
	sort.Slice(b.Items, func(i, j int) bool {
		if c := b.Items[i].Total.Cmp(b.Items[j].Total); c != 0 {
			return c > 0
		}
		return b.Items[i].Name < b.Items[j].Name
	})
	return b
}

// Details возвращает записи месяца из сохраненного контекста отчета.
// kind выбирает доходы или расходы, фильтры контекста сохраняются.
func (t *Tracker) Details(ctx context.Context, userID string, kind model.ReportKind, report model.ReportContext) (*Details, error) {
	window, err := t.month(report.Month)
	if err != nil {
		return nil, err
	}
	details := &Details{Kind: kind, Month: window}
	groups := make(map[string][]DetailEntry)

	switch kind {
	case model.ReportIncomes:
		filter := window.Filter()
		filter.Source = report.Source
		incomes, err := t.repo.GetIncomes(ctx, userID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to get incomes: %w", err)
		}
		for _, inc := range incomes {
			name := groupName(inc.Source)
			groups[name] = append(groups[name], DetailEntry{
				Description: inc.Description, Amount: inc.Amount, MessageID: inc.MessageID, Date: inc.Date,
			})
		}
	case model.ReportExpenses:
		filter := window.Filter()
		filter.Category = report.Category
		expenses, err := t.repo.GetExpenses(ctx, userID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to get expenses: %w", err)
		}
		for _, exp := range expenses {
			name := groupName(exp.Category)
			groups[name] = append(groups[name], DetailEntry{
				Description: exp.Description, Amount: exp.Amount, MessageID: exp.MessageID, Date: exp.Date,
			})
		}
	default:
		return nil, fmt.Errorf("unsupported detail kind %q", kind)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		details.Groups = append(details.Groups, DetailGroup{Name: name, Entries: groups[name]})
	}
	return details, nil
}

// ProfitReport возвращает доходы и расходы по дням за последние days дней, включая сегодня
func (t *Tracker) ProfitReport(ctx context.Context, userID string, days int) ([]DailyProfit, error) {
	if days <= 0 {
		days = defaultReportDays
	}
	if days > maxReportDays {
		days = maxReportDays
	}

	now := t.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, t.loc)
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)
	filter := model.TransactionFilter{StartDate: &start, EndDate: &end}

	incomes, err := t.repo.GetIncomes(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get incomes: %w", err)
	}
	expenses, err := t.repo.GetExpenses(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	report := make([]DailyProfit, days)
	for i := range report {
		report[i] = DailyProfit{Date: start.AddDate(0, 0, i), Income: decimal.Zero, Expense: decimal.Zero}
	}
	dayIndex := func(date time.Time) int {
		local := date.In(t.loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.loc)
		for i := range report {
			if report[i].Date.Equal(day) {
				return i
			}
		}
		return -1
	}
	for _, inc := range incomes {
		if i := dayIndex(inc.Date); i >= 0 {
			report[i].Income = report[i].Income.Add(inc.Amount)
		}
	}
	for _, exp := range expenses {
		if i := dayIndex(exp.Date); i >= 0 {
			report[i].Expense = report[i].Expense.Add(exp.Amount)
		}
	}
	return report, nil
}

// HasActivity сообщает, есть ли в отчете хотя бы одна запись
func HasActivity(report []DailyProfit) bool {
	for _, d := range report {
		if !d.Income.IsZero() || !d.Expense.IsZero() {
			return true
		}
	}
	return false
}
