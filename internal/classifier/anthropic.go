package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ivanoskov/driver_bot/internal/model"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 512
)

type messagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClassifier определяет намерение через Claude
type AnthropicClassifier struct {
	messages messagesAPI
	model    string
	loc      *time.Location
	now      func() time.Time
}

// NewAnthropicClassifier создает классификатор с ключом API
func NewAnthropicClassifier(apiKey, modelName string, loc *time.Location) *AnthropicClassifier {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newAnthropicClassifier(&client.Messages, modelName, loc)
}

func newAnthropicClassifier(messages messagesAPI, modelName string, loc *time.Location) *AnthropicClassifier {
	if modelName == "" {
		modelName = DefaultModel
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnthropicClassifier{
		messages: messages,
		model:    modelName,
		loc:      loc,
		now:      time.Now,
	}
}

// Classify отправляет сообщение модели и разбирает ответ
func (c *AnthropicClassifier) Classify(ctx context.Context, text string) (model.Intent, error) {
	msg, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: buildPrompt(c.now().In(c.loc))},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return model.UnknownIntent(), fmt.Errorf("llm api call: %w", err)
	}
	if len(msg.Content) == 0 {
		return model.UnknownIntent(), fmt.Errorf("empty response")
	}
	return ParseIntent(msg.Content[0].Text)
}
