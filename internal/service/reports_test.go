package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/driver_bot/internal/model"
	"github.com/ivanoskov/driver_bot/internal/repository"
)

func seed(t *testing.T, repo *repository.MemoryRepository) {
	t.Helper()
	ctx := context.Background()
	may := time.Date(2024, 5, 3, 12, 0, 0, 0, saoPaulo)
	april := time.Date(2024, 4, 30, 23, 30, 0, 0, saoPaulo)

	incomes := []model.Income{
		{UserID: "1", Amount: decimal.NewFromInt(100), Description: "corrida longa", Category: "Corrida", Source: "Uber", Date: may, MessageID: "00001"},
		{UserID: "1", Amount: decimal.NewFromInt(50), Description: "corrida curta", Category: "Corrida", Source: "99", Date: may, MessageID: "00002"},
		{UserID: "1", Amount: decimal.NewFromInt(30), Description: "gorjeta", Category: "Gorjeta", Source: "Uber", Date: may.Add(time.Hour), MessageID: "00003"},
		{UserID: "1", Amount: decimal.NewFromInt(999), Description: "abril", Category: "Corrida", Source: "Uber", Date: april, MessageID: "00004"},
	}
	for i := range incomes {
		require.NoError(t, repo.AddIncome(ctx, &incomes[i]))
	}
	expenses := []model.Expense{
		{UserID: "1", Amount: decimal.NewFromInt(150), Description: "gasolina", Category: "Combustível", Date: may, MessageID: "00005"},
		{UserID: "1", Amount: decimal.NewFromInt(20), Description: "lavagem", Category: "Limpeza", Date: may, MessageID: "00006"},
		{UserID: "1", Amount: decimal.NewFromInt(10), Description: "etanol", Category: "Combustível", Date: may.Add(time.Hour), MessageID: "00007"},
	}
	for i := range expenses {
		require.NoError(t, repo.AddExpense(ctx, &expenses[i]))
	}
}

func TestResolveMonth(t *testing.T) {
	w, err := ResolveMonth("", fixedNow, saoPaulo)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", w.Key)
	assert.Equal(t, "Maio", w.Name())
	assert.True(t, w.Start.Equal(time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)))
	assert.True(t, w.End.Equal(time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)))

	w, err = ResolveMonth("2023-12", fixedNow, saoPaulo)
	require.NoError(t, err)
	assert.Equal(t, "Dezembro", w.Name())
	assert.Equal(t, "2024-01", w.End.Format(monthLayout))

	_, err = ResolveMonth("maio", fixedNow, saoPaulo)
	assert.ErrorIs(t, err, ErrInvalidMonth)

	// 1 июня 01:00 UTC, в Сан-Паулу еще май
	w, err = ResolveMonth("", time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC), saoPaulo)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", w.Key)
}

func TestTracker_Summary(t *testing.T) {
	ctx := context.Background()
	tracker, repo := newTestTracker(t)
	seed(t, repo)

	s, err := tracker.Summary(ctx, "1", SummaryQuery{})
	require.NoError(t, err)
	assert.Equal(t, "180", s.Income.String())
	assert.Equal(t, "180", s.Expenses.String())
	assert.True(t, s.Profit().IsZero())
	assert.False(t, s.Empty())

	s, err = tracker.Summary(ctx, "1", SummaryQuery{Source: "uber"})
	require.NoError(t, err)
	assert.Equal(t, "Uber", s.Source)
	assert.Equal(t, "130", s.Income.String())
	assert.True(t, s.Expenses.IsZero())

	s, err = tracker.Summary(ctx, "1", SummaryQuery{Category: "combustível"})
	require.NoError(t, err)
	assert.Equal(t, "Combustível", s.Category)
	assert.Equal(t, "160", s.Expenses.String())

	s, err = tracker.Summary(ctx, "1", SummaryQuery{Month: "2024-04"})
	require.NoError(t, err)
	assert.Equal(t, "999", s.Income.String())

	s, err = tracker.Summary(ctx, "1", SummaryQuery{Month: "2023-01"})
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestTracker_Breakdowns(t *testing.T) {
	ctx := context.Background()
	tracker, repo := newTestTracker(t)
	seed(t, repo)

	byCategory, err := tracker.ExpensesByCategory(ctx, "1", "")
	require.NoError(t, err)
	require.Len(t, byCategory.Items, 2)
	assert.Equal(t, "Combustível", byCategory.Items[0].Name)
	assert.Equal(t, "160", byCategory.Items[0].Total.String())
	assert.Equal(t, "180", byCategory.Total.String())

	bySource, err := tracker.IncomesBySource(ctx, "1", "2024-05")
	require.NoError(t, err)
	require.Len(t, bySource.Items, 2)
	assert.Equal(t, "Uber", bySource.Items[0].Name)
	assert.Equal(t, "130", bySource.Items[0].Total.String())
	assert.Equal(t, "99", bySource.Items[1].Name)

	empty, err := tracker.IncomesBySource(ctx, "2", "")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func TestTracker_Details(t *testing.T) {
	ctx := context.Background()
	tracker, repo := newTestTracker(t)
	seed(t, repo)

	details, err := tracker.Details(ctx, "1", model.ReportExpenses, model.ReportContext{Kind: model.ReportExpenses, Month: "2024-05"})
	require.NoError(t, err)
	require.Len(t, details.Groups, 2)
	assert.Equal(t, "Combustível", details.Groups[0].Name)
	require.Len(t, details.Groups[0].Entries, 2)
	assert.Equal(t, "gasolina", details.Groups[0].Entries[0].Description)

	details, err = tracker.Details(ctx, "1", model.ReportIncomes, model.ReportContext{Kind: model.ReportSummary, Month: "2024-05", Source: "Uber"})
	require.NoError(t, err)
	require.Len(t, details.Groups, 1)
	assert.Len(t, details.Groups[0].Entries, 2)

	_, err = tracker.Details(ctx, "1", model.ReportSummary, model.ReportContext{})
	assert.Error(t, err)
}

func TestTracker_ProfitReport(t *testing.T) {
	ctx := context.Background()
	tracker, repo := newTestTracker(t)
	seed(t, repo)

	report, err := tracker.ProfitReport(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, report, 7)
	assert.True(t, report[0].Date.Equal(time.Date(2024, 5, 4, 0, 0, 0, 0, saoPaulo)))
	assert.False(t, HasActivity(report))

	report, err = tracker.ProfitReport(ctx, "1", 10)
	require.NoError(t, err)
	require.Len(t, report, 10)
	day := report[2]
	assert.True(t, day.Date.Equal(time.Date(2024, 5, 3, 0, 0, 0, 0, saoPaulo)))
	assert.Equal(t, "180", day.Income.String())
	assert.Equal(t, "180", day.Expense.String())
	assert.True(t, day.Profit().IsZero())
	assert.True(t, HasActivity(report))
	assert.True(t, report[0].Income.IsZero(), "income from april 30 is outside the window")

	report, err = tracker.ProfitReport(ctx, "1", 1000)
	require.NoError(t, err)
	assert.Len(t, report, maxReportDays)
}
