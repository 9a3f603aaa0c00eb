package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Намерения, которые возвращает классификатор
const (
	IntentRegisterVehicle       = "register_vehicle"
	IntentAddIncome             = "add_income"
	IntentAddExpense            = "add_expense"
	IntentDeleteTransaction     = "delete_transaction"
	IntentAddReminder           = "add_reminder"
	IntentDeleteReminder        = "delete_reminder"
	IntentListReminders         = "list_reminders"
	IntentGetSummary            = "get_summary"
	IntentExpensesByCategory    = "get_expenses_by_category"
	IntentIncomesBySource       = "get_incomes_by_source"
	IntentTransactionDetails    = "get_transaction_details"
	IntentGenerateProfitChart   = "generate_profit_chart"
	IntentGeneratePlatformChart = "generate_platform_chart"
	IntentGreeting              = "greeting"
	IntentInstructions          = "instructions"
	IntentUnknown               = "unknown"
)

// Intent содержит результат классификации сообщения
type Intent struct {
	Name string     `json:"intent"`
	Data IntentData `json:"data"`
}

// IntentData содержит извлеченные из сообщения поля
type IntentData struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Description     string           `json:"description,omitempty"`
	Category        string           `json:"category,omitempty"`
	Source          string           `json:"source,omitempty"`
	Tax             *decimal.Decimal `json:"tax,omitempty"`
	Distance        *decimal.Decimal `json:"distance,omitempty"`
	MessageID       string           `json:"messageId,omitempty"`
	Days            int              `json:"days,omitempty"`
	Month           string           `json:"month,omitempty"`
	ReminderDate    string           `json:"reminderDate,omitempty"`
	RelativeMinutes *int             `json:"relativeMinutes,omitempty"`
	Type            string           `json:"type,omitempty"`
	DetailKind      string           `json:"detailKind,omitempty"`
}

// CleanMessageID убирает префикс "#" из идентификатора
func CleanMessageID(id string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "#"))
}

// UnknownIntent возвращает намерение по умолчанию
func UnknownIntent() Intent {
	return Intent{Name: IntentUnknown}
}
