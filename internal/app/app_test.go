package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/driver_bot/internal/bot"
	"github.com/ivanoskov/driver_bot/internal/config"
	"github.com/ivanoskov/driver_bot/internal/flow"
	"github.com/ivanoskov/driver_bot/internal/repository"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		TelegramToken:        "123:abc",
		StorageDriver:        config.DriverMemory,
		AnthropicAPIKey:      "sk-ant-test",
		Timezone:             "UTC",
		SessionTTL:           time.Minute,
		SessionSweepInterval: time.Minute,
		ReminderInterval:     time.Minute,
		DeliveryMaxChars:     4000,
		BackgroundTimeout:    time.Minute,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewRepository(t *testing.T) {
	cfg := testConfig(t)

	repo, closeFn, err := NewRepository(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &repository.MemoryRepository{}, repo)
	closeFn()

	cfg.StorageDriver = "mongo"
	_, _, err = NewRepository(context.Background(), cfg)
	assert.Error(t, err)
}

func TestAssemble(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"ADAP","username":"adap_bot"}}`))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	cfg := testConfig(t)
	tgBot, err := bot.NewBotWithEndpoint(cfg.TelegramToken, server.URL+"/bot%s/%s", server.Client(), cfg.DeliveryMaxChars, logger)
	require.NoError(t, err)

	closed := false
	a := assemble(cfg, logger, repository.NewMemoryRepository(), tgBot, func() { closed = true })

	reply := a.Handler.HandleMessage(context.Background(), bot.Message{UserID: "42", Text: "parar"})
	assert.Equal(t, flow.MsgNothingToCancel, reply)

	result := a.Scheduler.RunOnce(context.Background())
	assert.Zero(t, result.Due)

	a.Close()
	assert.True(t, closed)
}
