package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStats хранит накопительные итоги и флаги пользователя
type UserStats struct {
	UserID          string          `json:"user_id"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	Blocked         bool            `json:"blocked"`
	ActiveVehicleID string          `json:"active_vehicle_id,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
