// Package classifier переводит текст и аудио пользователя в намерения.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ivanoskov/driver_bot/internal/model"
)

// Classifier определяет намерение сообщения
type Classifier interface {
	Classify(ctx context.Context, text string) (model.Intent, error)
}

// Transcriber переводит голосовое сообщение в текст
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error)
}

var knownIntents = map[string]bool{
	model.IntentRegisterVehicle:       true,
	model.IntentAddIncome:             true,
	model.IntentAddExpense:            true,
	model.IntentDeleteTransaction:     true,
	model.IntentAddReminder:           true,
	model.IntentDeleteReminder:        true,
	model.IntentListReminders:         true,
	model.IntentGetSummary:            true,
	model.IntentExpensesByCategory:    true,
	model.IntentIncomesBySource:       true,
	model.IntentTransactionDetails:    true,
	model.IntentGenerateProfitChart:   true,
	model.IntentGeneratePlatformChart: true,
	model.IntentGreeting:              true,
	model.IntentInstructions:          true,
	model.IntentUnknown:               true,
}

// ParseIntent разбирает ответ модели. Неизвестное намерение превращается в unknown.
func ParseIntent(text string) (model.Intent, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return model.UnknownIntent(), err
	}

	var intent model.Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return model.UnknownIntent(), fmt.Errorf("failed to parse intent: %w", err)
	}

	intent.Name = strings.ToLower(strings.TrimSpace(intent.Name))
	if !knownIntents[intent.Name] {
		intent.Name = model.IntentUnknown
	}
	intent.Data.MessageID = model.CleanMessageID(intent.Data.MessageID)
	return intent, nil
}

// extractJSON находит первый JSON-объект в строке
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}
