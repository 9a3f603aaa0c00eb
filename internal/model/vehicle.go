package model

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle представляет автомобиль пользователя
type Vehicle struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Brand          string    `json:"brand"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	InitialMileage int64     `json:"initial_mileage"`
	CurrentMileage int64     `json:"current_mileage"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// GenerateID генерирует новый UUID для автомобиля, если он еще не установлен
func (v *Vehicle) GenerateID() {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
}
