package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/ivanoskov/driver_bot/internal/model"
)

const monthLayout = "2006-01"

var monthNames = []string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthWindow задает календарный месяц в часовом поясе пользователя, [Start, End)
type MonthWindow struct {
	Key   string
	Start time.Time
	End   time.Time
}

// ResolveMonth разбирает месяц в формате YYYY-MM. Пустая строка означает текущий месяц.
func ResolveMonth(month string, now time.Time, loc *time.Location) (MonthWindow, error) {
	month = strings.TrimSpace(month)
	var start time.Time
	if month == "" {
		local := now.In(loc)
		start = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	} else {
		parsed, err := time.ParseInLocation(monthLayout, month, loc)
		if err != nil {
			return MonthWindow{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
		}
		start = parsed
	}

	return MonthWindow{
		Key:   start.Format(monthLayout),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}, nil
}

// Name возвращает название месяца на португальском
func (m MonthWindow) Name() string {
	return monthNames[m.Start.Month()-1]
}

// Filter возвращает фильтр выборки по этому месяцу
func (m MonthWindow) Filter() model.TransactionFilter {
	start, end := m.Start, m.End
	return model.TransactionFilter{StartDate: &start, EndDate: &end}
}
