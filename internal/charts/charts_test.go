package charts

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/driver_bot/internal/service"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func dailyReport(days int) []service.DailyProfit {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	report := make([]service.DailyProfit, days)
	for i := range report {
		report[i] = service.DailyProfit{
			Date:    start.AddDate(0, 0, i),
			Income:  decimal.NewFromInt(int64(100 + i*10)),
			Expense: decimal.NewFromInt(int64(40 + i)),
		}
	}
	return report
}

func TestProfitChart(t *testing.T) {
	g := NewChartGenerator()

	for _, days := range []int{2, 7, 30} {
		png, err := g.ProfitChart(dailyReport(days))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngSignature))
	}
}

func TestProfitChart_NoData(t *testing.T) {
	g := NewChartGenerator()

	_, err := g.ProfitChart(dailyReport(1))
	assert.ErrorIs(t, err, ErrNoData)

	empty := dailyReport(7)
	for i := range empty {
		empty[i].Income = decimal.Zero
		empty[i].Expense = decimal.Zero
	}
	_, err = g.ProfitChart(empty)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestPlatformChart(t *testing.T) {
	g := NewChartGenerator()
	window, err := service.ResolveMonth("2024-05", time.Now(), time.UTC)
	require.NoError(t, err)

	breakdown := &service.Breakdown{
		Month: window,
		Items: []service.BreakdownItem{
			{Name: "Uber", Total: decimal.NewFromInt(700)},
			{Name: "99", Total: decimal.NewFromInt(300)},
		},
		Total: decimal.NewFromInt(1000),
	}
	png, err := g.PlatformChart(breakdown)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngSignature))

	_, err = g.PlatformChart(&service.Breakdown{Month: window, Total: decimal.Zero})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = g.PlatformChart(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCalculateMovingAverage(t *testing.T) {
	got := calculateMovingAverage([]float64{2, 4, 6, 8}, 2)
	assert.Equal(t, []float64{2, 3, 5, 7}, got)
}
