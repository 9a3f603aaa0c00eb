package classifier

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const transcriptionLanguage = "pt"

type transcriptionAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// WhisperTranscriber распознает голосовые сообщения через Whisper
type WhisperTranscriber struct {
	api transcriptionAPI
}

func NewWhisperTranscriber(apiKey string) *WhisperTranscriber {
	return &WhisperTranscriber{api: openai.NewClient(apiKey)}
}

// Transcribe возвращает текст аудио. Имя файла нужно API для определения формата.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error) {
	if fileName == "" {
		fileName = "audio.ogg"
	}
	resp, err := w.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: fileName,
		Reader:   audio,
		Language: transcriptionLanguage,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
