package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/driver_bot/internal/delivery"
	"github.com/ivanoskov/driver_bot/internal/flow"
	"github.com/ivanoskov/driver_bot/internal/model"
	"github.com/ivanoskov/driver_bot/internal/repository"
	"github.com/ivanoskov/driver_bot/internal/service"
	"github.com/ivanoskov/driver_bot/internal/session"
)

const userID = "42"

var saoPaulo = time.FixedZone("BRT", -3*60*60)

// 10 мая 2024, 12:00 по Сан-Паулу
var fixedNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (model.Intent, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(model.Intent), args.Error(1)
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error) {
	f.calls++
	return f.text, f.err
}

type sentImage struct {
	userID  string
	caption string
	size    int
}

type fakeSender struct {
	mu     sync.Mutex
	texts  []string
	images []sentImage
	err    error
}

func (f *fakeSender) SendText(ctx context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendImage(ctx context.Context, userID string, png []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.images = append(f.images, sentImage{userID: userID, caption: caption, size: len(png)})
	return nil
}

func (f *fakeSender) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type testEnv struct {
	handler     *Handler
	repo        *repository.MemoryRepository
	sessions    *session.MemoryStore
	classifier  *mockClassifier
	transcriber *fakeTranscriber
	sender      *fakeSender
	hook        *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	repo := repository.NewMemoryRepository()
	tracker := service.NewTracker(repo, saoPaulo)
	tracker.SetClock(func() time.Time { return fixedNow })

	sessions := session.NewMemoryStore(time.Hour)
	sender := &fakeSender{}
	env := &testEnv{
		repo:        repo,
		sessions:    sessions,
		classifier:  new(mockClassifier),
		transcriber: &fakeTranscriber{},
		sender:      sender,
		hook:        hook,
	}
	env.handler = NewHandler(Deps{
		Tracker:           tracker,
		Sessions:          sessions,
		Classifier:        env.classifier,
		Transcriber:       env.transcriber,
		Deliverer:         delivery.NewDeliverer(sender, delivery.DefaultMaxChars, logger),
		Images:            sender,
		BackgroundTimeout: 5 * time.Second,
		Log:               logger,
	})
	return env
}

func (e *testEnv) classify(text string, intent model.Intent) {
	e.classifier.On("Classify", mock.Anything, text).Return(intent, nil).Once()
}

func (e *testEnv) send(text string) string {
	return e.handler.HandleMessage(context.Background(), Message{UserID: userID, Text: text})
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestHandler_AddExpense(t *testing.T) {
	env := newTestEnv(t)
	env.classify("150 de gasolina", model.Intent{
		Name: model.IntentAddExpense,
		Data: model.IntentData{Amount: amount("150"), Description: "gasolina", Category: "Combustível"},
	})

	reply := env.send("150 de gasolina")

	assert.Contains(t, reply, "💸 *Gasto anotado!*")
	assert.Contains(t, reply, "📌 Gasolina (_Combustível_)")
	assert.Contains(t, reply, "❌ *R$ 150.00*")
	assert.Regexp(t, `🆔 #[0-9a-f]{5}$`, reply)

	st, err := env.repo.GetUserStats(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, st.TotalSpent.Equal(decimal.NewFromInt(150)))
	env.classifier.AssertExpectations(t)
}

func TestHandler_AddIncomeThenDelete(t *testing.T) {
	env := newTestEnv(t)
	env.classify("ganhei 25 na uber, 12 km", model.Intent{
		Name: model.IntentAddIncome,
		Data: model.IntentData{
			Amount: amount("25"), Description: "corrida", Category: "Corrida",
			Source: "uber", Distance: amount("12"), Tax: amount("5"),
		},
	})

	reply := env.send("ganhei 25 na uber, 12 km")
	require.Contains(t, reply, "💰 *Ganho anotado da Uber!*")
	assert.Contains(t, reply, "🛣️ Distância: *12 km*")
	assert.Contains(t, reply, "➡️ Líquido: *R$ 20.00*")

	incomes, err := env.repo.GetIncomes(context.Background(), userID, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	id := incomes[0].MessageID

	env.classify("apagar #"+id, model.Intent{
		Name: model.IntentDeleteTransaction,
		Data: model.IntentData{MessageID: "#" + id},
	})
	assert.Equal(t, "🗑️ Ganho _#"+id+"_ removido.", env.send("apagar #"+id))

	st, err := env.repo.GetUserStats(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, st.TotalIncome.IsZero())
}

func TestHandler_RideWithoutDistance(t *testing.T) {
	env := newTestEnv(t)
	env.classify("ganhei 25 numa corrida", model.Intent{
		Name: model.IntentAddIncome,
		Data: model.IntentData{Amount: amount("25"), Category: "Corrida", Source: "99"},
	})

	assert.Equal(t, msgDistanceNeeded, env.send("ganhei 25 numa corrida"))

	_, err := env.repo.GetUserStats(context.Background(), userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHandler_DeleteUnknownTransaction(t *testing.T) {
	env := newTestEnv(t)
	env.classify("apagar #a4b8c", model.Intent{
		Name: model.IntentDeleteTransaction,
		Data: model.IntentData{MessageID: "a4b8c"},
	})

	assert.Equal(t, "🚫 Nenhum registro encontrado com o ID _#a4b8c_ para exclusão.", env.send("apagar #a4b8c"))

	_, err := env.repo.GetUserStats(context.Background(), userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHandler_BlockedUser(t *testing.T) {
	env := newTestEnv(t)
	env.repo.SetBlocked(userID, true)

	assert.Equal(t, MsgBlocked, env.send("150 de gasolina"))
	env.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestHandler_EmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	assert.Empty(t, env.send("   "))
	env.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestHandler_CancelWithoutFlow(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, flow.MsgNothingToCancel, env.send("Cancelar"))
	env.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestHandler_Commands(t *testing.T) {
	env := newTestEnv(t)

	reply := env.handler.HandleMessage(context.Background(), Message{UserID: userID, Text: "/start", Command: "start"})
	assert.Equal(t, MsgHelp, reply)
	env.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestHandler_VehicleRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.classify("quero cadastrar meu carro", model.Intent{Name: model.IntentRegisterVehicle})

	assert.Equal(t, flow.MsgVehicleStart, env.send("quero cadastrar meu carro"))

	steps := []struct {
		text string
		want string
	}{
		{text: "Fiat", want: "*Fiat*"},
		{text: "sim", want: "Marca confirmada"},
		{text: "Argo", want: "*Argo*"},
		{text: "sim", want: "Modelo confirmado"},
		{text: "2021", want: "*2021*"},
		{text: "sim", want: "Ano confirmado"},
		{text: "85.000 km", want: "*85000 KM*"},
		{text: "sim", want: "🚀 Prontinho! Seu *Fiat Argo* foi cadastrado com sucesso."},
	}
	for _, step := range steps {
		assert.Contains(t, env.send(step.text), step.want, step.text)
	}

	vehicles := env.repo.Vehicles(userID)
	require.Len(t, vehicles, 1)
	assert.Equal(t, int64(85000), vehicles[0].InitialMileage)
	assert.True(t, vehicles[0].IsActive)
	env.classifier.AssertExpectations(t)
}

func TestHandler_FlowPreemptsClassifier(t *testing.T) {
	env := newTestEnv(t)
	env.handler.Flows().StartVehicleRegistration(userID)

	audio := &Audio{FileName: "voice.ogg", Open: func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("OggS")), nil
	}}
	env.transcriber.text = "Tesla"
	reply := env.handler.HandleMessage(context.Background(), Message{UserID: userID, Audio: audio})
	assert.Equal(t, flow.MsgTextOnly, reply)
	assert.Equal(t, 1, env.transcriber.calls)
	sess, active := env.handler.Flows().Active(userID)
	require.True(t, active)
	assert.Equal(t, model.StepAwaitingBrand, sess.Step)

	assert.Contains(t, env.send("Chevrolet"), "*Chevrolet*")
	assert.Equal(t, flow.MsgCancelled, env.send("sair"))
	_, active = env.handler.Flows().Active(userID)
	assert.False(t, active)

	env.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestHandler_VoiceCancelDuringFlow(t *testing.T) {
	env := newTestEnv(t)
	env.handler.Flows().StartVehicleRegistration(userID)
	env.transcriber.text = "Cancelar."

	audio := &Audio{FileName: "voice.ogg", Open: func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("OggS")), nil
	}}
	reply := env.handler.HandleMessage(context.Background(), Message{UserID: userID, Audio: audio})

	assert.Equal(t, flow.MsgCancelled, reply)
	assert.Equal(t, 1, env.transcriber.calls)
	_, active := env.handler.Flows().Active(userID)
	assert.False(t, active)
	env.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestHandler_VoiceDuringFlowWithoutTranscriber(t *testing.T) {
	env := newTestEnv(t)
	env.handler.transcriber = nil
	env.handler.Flows().StartVehicleRegistration(userID)

	audio := &Audio{FileName: "voice.ogg", Open: func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("OggS")), nil
	}}
	reply := env.handler.HandleMessage(context.Background(), Message{UserID: userID, Audio: audio})

	assert.Equal(t, flow.MsgTextOnly, reply)
	_, active := env.handler.Flows().Active(userID)
	assert.True(t, active)
}

func TestHandler_Audio(t *testing.T) {
	env := newTestEnv(t)
	env.transcriber.text = "150 de gasolina"
	env.classify("150 de gasolina", model.Intent{
		Name: model.IntentAddExpense,
		Data: model.IntentData{Amount: amount("150"), Description: "gasolina", Category: "Combustível"},
	})

	audio := &Audio{FileName: "voice.ogg", Open: func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("OggS")), nil
	}}
	reply := env.handler.HandleMessage(context.Background(), Message{UserID: userID, Audio: audio})

	assert.Contains(t, reply, "💸 *Gasto anotado!*")
	assert.Equal(t, 1, env.transcriber.calls)
}

func TestHandler_AudioFailures(t *testing.T) {
	t.Run("download fails", func(t *testing.T) {
		env := newTestEnv(t)
		audio := &Audio{Open: func(ctx context.Context) (io.ReadCloser, error) {
			return nil, errors.New("timeout")
		}}
		assert.Equal(t, MsgInternalError, env.handler.HandleMessage(context.Background(), Message{UserID: userID, Audio: audio}))
	})

	t.Run("empty transcription", func(t *testing.T) {
		env := newTestEnv(t)
		audio := &Audio{Open: func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("")), nil
		}}
		assert.Empty(t, env.handler.HandleMessage(context.Background(), Message{UserID: userID, Audio: audio}))
		env.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
	})

	t.Run("no transcriber", func(t *testing.T) {
		env := newTestEnv(t)
		env.handler.transcriber = nil
		audio := &Audio{Open: func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("")), nil
		}}
		assert.Equal(t, MsgAudioUnsupported, env.handler.HandleMessage(context.Background(), Message{UserID: userID, Audio: audio}))
	})
}

func TestHandler_ClassifierFailureFallsBackToHelp(t *testing.T) {
	env := newTestEnv(t)
	env.classifier.On("Classify", mock.Anything, "oi").Return(model.UnknownIntent(), errors.New("overloaded")).Once()

	assert.Equal(t, MsgHelp, env.send("oi"))
}

func TestHandler_RecoversPanic(t *testing.T) {
	env := newTestEnv(t)
	env.classifier.On("Classify", mock.Anything, "oi").Run(func(args mock.Arguments) {
		panic("boom")
	}).Return(model.UnknownIntent(), nil).Once()

	assert.Equal(t, MsgInternalError, env.send("oi"))
	require.NotNil(t, env.hook.LastEntry())
	assert.Equal(t, "Handler.Panic", env.hook.LastEntry().Message)
}

func TestHandler_Reminders(t *testing.T) {
	env := newTestEnv(t)
	minutes := 30
	env.classify("me lembra de pagar o seguro daqui 30 minutos", model.Intent{
		Name: model.IntentAddReminder,
		Data: model.IntentData{Description: "pagar o seguro", Type: "pagamento", RelativeMinutes: &minutes},
	})

	reply := env.send("me lembra de pagar o seguro daqui 30 minutos")
	assert.Contains(t, reply, "*Lembrete agendado!* ✅")
	assert.Contains(t, reply, "💳 *Pagamento:* pagar o seguro")
	assert.Contains(t, reply, "📅 *Data:* 10/05/2024 12:30")

	env.classify("meus lembretes", model.Intent{Name: model.IntentListReminders})
	list := env.send("meus lembretes")
	assert.Contains(t, list, "Aqui estão seus próximos lembretes:")
	assert.Contains(t, list, "💳 *Pagamento:* pagar o seguro - *10/05/2024*")

	env.classify("apagar lembrete #fffff", model.Intent{
		Name: model.IntentDeleteReminder,
		Data: model.IntentData{MessageID: "#fffff"},
	})
	assert.Equal(t, "🚫 Nenhum lembrete com o ID _#fffff_ foi encontrado.", env.send("apagar lembrete #fffff"))
}

func TestHandler_ReminderInPast(t *testing.T) {
	env := newTestEnv(t)
	env.classify("lembrar ontem", model.Intent{
		Name: model.IntentAddReminder,
		Data: model.IntentData{Description: "x", ReminderDate: "2024-05-09T10:00:00"},
	})

	assert.Equal(t, msgReminderPast, env.send("lembrar ontem"))
}

func seedExpenses(t *testing.T, env *testEnv) {
	t.Helper()
	for _, text := range []string{"150 de gasolina", "30 de lanche"} {
		category := "Combustível"
		value := "150"
		if strings.Contains(text, "lanche") {
			category, value = "Alimentação/Água", "30"
		}
		env.classify(text, model.Intent{
			Name: model.IntentAddExpense,
			Data: model.IntentData{Amount: amount(value), Description: strings.Fields(text)[2], Category: category},
		})
		require.Contains(t, env.send(text), "Gasto anotado")
	}
}

func TestHandler_DetailsDeliveredInBackground(t *testing.T) {
	env := newTestEnv(t)
	seedExpenses(t, env)

	env.classify("gastos por categoria", model.Intent{Name: model.IntentExpensesByCategory})
	breakdown := env.send("gastos por categoria")
	assert.Contains(t, breakdown, "*Gastos de Maio por Categoria* 💸")
	assert.Contains(t, breakdown, "*Combustível*: R$ 150.00")
	assert.Contains(t, breakdown, "*Total Gasto:* R$ 180.00")

	env.classify("detalhes gastos", model.Intent{Name: model.IntentTransactionDetails})
	assert.Equal(t, MsgDetailsPreparing, env.send("detalhes gastos"))
	env.handler.Wait()

	texts := env.sender.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "🧾 *Detalhes dos Gastos em Maio*")
	assert.Contains(t, texts[0], "*Alimentação/Água*:\n   💸 lanche: *R$ 30.00*")

	_, ok := env.sessions.Get(userID)
	assert.False(t, ok)

	env.classify("detalhes gastos", model.Intent{Name: model.IntentTransactionDetails})
	assert.Equal(t, MsgNoReportContext, env.send("detalhes gastos"))
}

func TestHandler_DetailsAfterSummaryNeedKind(t *testing.T) {
	env := newTestEnv(t)
	seedExpenses(t, env)

	env.classify("resumo do mês", model.Intent{Name: model.IntentGetSummary})
	summary := env.send("resumo do mês")
	assert.Contains(t, summary, "*Resumo de Maio*")
	assert.Contains(t, summary, "❌ *Lucro: R$ -180.00*")

	env.classify("detalhes", model.Intent{Name: model.IntentTransactionDetails})
	assert.Equal(t, MsgSpecifyDetails, env.send("detalhes"))

	env.classify("detalhes", model.Intent{Name: model.IntentTransactionDetails, Data: model.IntentData{DetailKind: "expense"}})
	assert.Equal(t, MsgDetailsPreparing, env.send("detalhes"))
	env.handler.Wait()
	require.Len(t, env.sender.Texts(), 1)
}

func TestHandler_BackgroundFailureIsLogged(t *testing.T) {
	env := newTestEnv(t)
	seedExpenses(t, env)
	env.sender.err = errors.New("telegram down")

	env.classify("gastos por categoria", model.Intent{Name: model.IntentExpensesByCategory})
	env.send("gastos por categoria")
	env.classify("detalhes gastos", model.Intent{Name: model.IntentTransactionDetails})
	assert.Equal(t, MsgDetailsPreparing, env.send("detalhes gastos"))
	env.handler.Wait()

	var failed bool
	for _, entry := range env.hook.AllEntries() {
		if entry.Message == "Handler.Background.Failed" {
			failed = true
		}
	}
	assert.True(t, failed)

	sess, ok := env.sessions.Get(userID)
	require.True(t, ok)
	require.NotNil(t, sess.Report)
	assert.Equal(t, model.ReportExpenses, sess.Report.Kind)

	env.sender.mu.Lock()
	env.sender.err = nil
	env.sender.mu.Unlock()
	env.classify("detalhes gastos", model.Intent{Name: model.IntentTransactionDetails})
	assert.Equal(t, MsgDetailsPreparing, env.send("detalhes gastos"))
	env.handler.Wait()

	require.Len(t, env.sender.Texts(), 1)
	_, ok = env.sessions.Get(userID)
	assert.False(t, ok)
}

func TestHandler_ProfitChart(t *testing.T) {
	env := newTestEnv(t)
	seedExpenses(t, env)

	env.classify("gráfico de lucro", model.Intent{Name: model.IntentGenerateProfitChart})
	assert.Equal(t, "📈 Certo! Gerando o gráfico de lucratividade dos últimos 7 dias...", env.send("gráfico de lucro"))
	env.handler.Wait()

	require.Len(t, env.sender.images, 1)
	assert.Positive(t, env.sender.images[0].size)
	assert.Contains(t, env.sender.images[0].caption, "R$ -180.00")
}

func TestHandler_PlatformChartWithoutData(t *testing.T) {
	env := newTestEnv(t)

	env.classify("gráfico por plataforma", model.Intent{Name: model.IntentGeneratePlatformChart})
	assert.Contains(t, env.send("gráfico por plataforma"), "plataforma de Maio")
	env.handler.Wait()

	assert.Equal(t, []string{MsgNoChartData}, env.sender.Texts())
	assert.Empty(t, env.sender.images)
}

func TestChartDays(t *testing.T) {
	assert.Equal(t, 7, chartDays(0))
	assert.Equal(t, 2, chartDays(1))
	assert.Equal(t, 30, chartDays(30))
	assert.Equal(t, 90, chartDays(365))
}
