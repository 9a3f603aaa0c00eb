package charts

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/ivanoskov/driver_bot/internal/service"
)

// Минимальная доля платформы, которая попадает на диаграмму отдельным сектором
const minSharePercent = 1.0

var ErrNoData = errors.New("not enough data for chart")

// ChartGenerator генерирует различные типы графиков
type ChartGenerator struct{}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// calculateMovingAverage вычисляет скользящее среднее
func calculateMovingAverage(values []float64, window int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		count := 0
		sum := 0.0
		for j := max(0, i-window+1); j <= i; j++ {
			sum += values[j]
			count++
		}
		result[i] = sum / float64(count)
	}
	return result
}

func formatReais(v interface{}) string {
	return fmt.Sprintf("R$ %.0f", v.(float64))
}

// ProfitChart рисует доходы, расходы и прибыль по дням.
// Для построения оси времени нужно минимум два дня.
func (g *ChartGenerator) ProfitChart(report []service.DailyProfit) ([]byte, error) {
	if len(report) < 2 || !service.HasActivity(report) {
		return nil, ErrNoData
	}

	xValues := make([]time.Time, len(report))
	incomeValues := make([]float64, len(report))
	expenseValues := make([]float64, len(report))
	profitValues := make([]float64, len(report))
	for i, day := range report {
		xValues[i] = day.Date
		incomeValues[i] = day.Income.InexactFloat64()
		expenseValues[i] = day.Expense.InexactFloat64()
		profitValues[i] = day.Profit().InexactFloat64()
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Ganhos",
			XValues: xValues,
			YValues: incomeValues,
			Style: chart.Style{
				StrokeColor: chart.ColorGreen,
				StrokeWidth: 2,
			},
		},
		chart.TimeSeries{
			Name:    "Gastos",
			XValues: xValues,
			YValues: expenseValues,
			Style: chart.Style{
				StrokeColor: chart.ColorRed,
				StrokeWidth: 2,
			},
		},
		chart.TimeSeries{
			Name:    "Lucro",
			XValues: xValues,
			YValues: profitValues,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				StrokeWidth: 3,
			},
		},
	}
	if len(report) >= 14 {
		series = append(series, chart.TimeSeries{
			Name:    "Tendência do lucro (7 dias)",
			XValues: xValues,
			YValues: calculateMovingAverage(profitValues, 7),
			Style: chart.Style{
				StrokeColor:     chart.ColorBlue.WithAlpha(100),
				StrokeWidth:     2,
				StrokeDashArray: []float64{5.0, 5.0},
			},
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Lucratividade dos últimos %d dias", len(report)),
		Width:  1200,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02/01"),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: formatReais,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		}),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render profit chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// PlatformChart рисует круговую диаграмму доходов по платформам
func (g *ChartGenerator) PlatformChart(breakdown *service.Breakdown) ([]byte, error) {
	if breakdown == nil || len(breakdown.Items) == 0 || !breakdown.Total.IsPositive() {
		return nil, ErrNoData
	}

	total := breakdown.Total.InexactFloat64()
	values := make([]chart.Value, 0, len(breakdown.Items))
	for _, item := range breakdown.Items {
		amount := item.Total.InexactFloat64()
		percentage := amount / total * 100
		if percentage <= minSharePercent {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: R$ %.0f (%.1f%%)", item.Name, amount, percentage),
			Value: amount,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	pie := chart.PieChart{
		Title:  fmt.Sprintf("Ganhos de %s por plataforma", breakdown.Month.Name()),
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render platform chart: %w", err)
	}
	return buffer.Bytes(), nil
}
