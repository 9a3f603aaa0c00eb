package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/ivanoskov/driver_bot/internal/app"
	"github.com/ivanoskov/driver_bot/internal/config"
	"github.com/ivanoskov/driver_bot/internal/logging"
)

// Request структура входящего запроса от API Gateway
type Request struct {
	Body string `json:"body"`
}

// Response структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

var (
	instance *app.App
	initErr  error
	initOnce sync.Once
)

// application создает компоненты один раз на экземпляр функции
func application(ctx context.Context) (*app.App, error) {
	initOnce.Do(func() {
		cfg, err := config.LoadConfig()
		if err != nil {
			initErr = err
			return
		}
		instance, initErr = app.New(ctx, cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat))
	})
	return instance, initErr
}

// Handler обрабатывает одно webhook-обновление.
// Функция завершается только после фоновых задач, иначе среда выполнения может их остановить.
func Handler(ctx context.Context, request Request) (*Response, error) {
	a, err := application(ctx)
	if err != nil {
		return errorResponse(err)
	}

	err = a.Bot.HandleWebhook(ctx, []byte(request.Body), a.Handler)
	a.Handler.Wait()
	if err != nil {
		a.Log.WithError(err).Error("Function.HandleWebhook")
	}

	// Ответ всегда 200, ошибки обработки только логируются
	return &Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func errorResponse(err error) (*Response, error) {
	return &Response{
		StatusCode: http.StatusInternalServerError,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func main() {
	// Точка входа для локального тестирования
}
