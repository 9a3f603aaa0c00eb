package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	shortIDLength = 5
	maxIDAttempts = 10
)

// IDGenerator выдает короткий идентификатор, который пользователь набирает как #id
type IDGenerator func() (string, error)

// RandomShortID возвращает 5 случайных шестнадцатеричных символов
func RandomShortID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", "")[:shortIDLength], nil
}

// uniqueID генерирует идентификатор, которого еще нет в хранилище
func (t *Tracker) uniqueID(ctx context.Context, exists func(ctx context.Context, id string) (bool, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := t.newID()
		if err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}
