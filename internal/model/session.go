package model

import "time"

// Flow задает название активного пошагового сценария
type Flow string

const FlowVehicleRegistration Flow = "vehicle_registration"

// Step описывает текущее состояние сценария
type Step string

// Состояния сценария регистрации автомобиля
const (
	StepAwaitingBrand     Step = "awaiting_brand"
	StepConfirmingBrand   Step = "confirming_brand"
	StepAwaitingModel     Step = "awaiting_model"
	StepConfirmingModel   Step = "confirming_model"
	StepAwaitingYear      Step = "awaiting_year"
	StepConfirmingYear    Step = "confirming_year"
	StepAwaitingMileage   Step = "awaiting_mileage"
	StepConfirmingMileage Step = "confirming_mileage"
)

// VehicleSteps перечисляет все состояния регистрации в порядке прохождения
var VehicleSteps = []Step{
	StepAwaitingBrand, StepConfirmingBrand,
	StepAwaitingModel, StepConfirmingModel,
	StepAwaitingYear, StepConfirmingYear,
	StepAwaitingMileage, StepConfirmingMileage,
}

// ReportKind определяет, какой отчет был показан последним
type ReportKind string

const (
	ReportExpenses ReportKind = "expense"
	ReportIncomes  ReportKind = "income"
	ReportSummary  ReportKind = "summary"
)

// ReportContext запоминает последний отчет для последующего запроса деталей
type ReportContext struct {
	Kind     ReportKind
	Month    string // YYYY-MM
	Source   string
	Category string
}

// VehicleDraft накапливает подтвержденные поля автомобиля
type VehicleDraft struct {
	Brand   string
	Model   string
	Year    int
	Mileage int64
}

// Session хранит состояние диалога пользователя между сообщениями
type Session struct {
	Flow         Flow
	Step         Step
	Vehicle      VehicleDraft
	PendingValue string
	Report       *ReportContext
	UpdatedAt    time.Time
}

// InFlow сообщает, идет ли сейчас пошаговый сценарий
func (s *Session) InFlow() bool {
	return s != nil && s.Flow != ""
}
