package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind различает доходы и расходы
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// Income представляет запись о доходе водителя
type Income struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Source      string           `json:"source"`
	Tax         *decimal.Decimal `json:"tax,omitempty"`
	Distance    *decimal.Decimal `json:"distance,omitempty"`
	Date        time.Time        `json:"date"`
	MessageID   string           `json:"message_id"`
	CreatedAt   time.Time        `json:"created_at"`
}

// GenerateID генерирует новый UUID для дохода, если он еще не установлен
func (i *Income) GenerateID() {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
}

// Net возвращает сумму за вычетом комиссии приложения
func (i *Income) Net() decimal.Decimal {
	if i.Tax == nil {
		return i.Amount
	}
	return i.Amount.Sub(*i.Tax)
}

// Expense представляет запись о расходе водителя
type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	MessageID   string          `json:"message_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// GenerateID генерирует новый UUID для расхода, если он еще не установлен
func (e *Expense) GenerateID() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
}

// TransactionFilter ограничивает выборку доходов и расходов
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time // не включительно
	Category  string
	Source    string
}

// Matches проверяет, попадает ли запись с указанными полями под фильтр
func (f TransactionFilter) Matches(date time.Time, category, source string) bool {
	if f.StartDate != nil && date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && !date.Before(*f.EndDate) {
		return false
	}
	if f.Category != "" && !equalFold(f.Category, category) {
		return false
	}
	if f.Source != "" && !equalFold(f.Source, source) {
		return false
	}
	return true
}
