package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/driver_bot/internal/charts"
	"github.com/ivanoskov/driver_bot/internal/classifier"
	"github.com/ivanoskov/driver_bot/internal/delivery"
	"github.com/ivanoskov/driver_bot/internal/flow"
	"github.com/ivanoskov/driver_bot/internal/model"
	"github.com/ivanoskov/driver_bot/internal/repository"
	"github.com/ivanoskov/driver_bot/internal/service"
	"github.com/ivanoskov/driver_bot/internal/session"
)

const (
	defaultBackgroundTimeout = 2 * time.Minute
	defaultChartDays         = 7
	minChartDays             = 2
	maxChartDays             = 90
)

// Audio представляет голосовое сообщение, которое скачивается только при необходимости
type Audio struct {
	FileName string
	Open     func(ctx context.Context) (io.ReadCloser, error)
}

// Message представляет входящее сообщение, независимое от транспорта
type Message struct {
	UserID  string
	Text    string
	Command string
	Audio   *Audio
}

// Deps содержит зависимости обработчика
type Deps struct {
	Tracker           *service.Tracker
	Sessions          session.Store
	Classifier        classifier.Classifier
	Transcriber       classifier.Transcriber
	Deliverer         *delivery.Deliverer
	Images            delivery.ImageSender
	Charts            *charts.ChartGenerator
	BackgroundTimeout time.Duration
	Log               logrus.FieldLogger
}

// Handler проводит сообщение через сценарии, проверки и классификатор
type Handler struct {
	tracker     *service.Tracker
	sessions    session.Store
	flows       *flow.Engine
	classifier  classifier.Classifier
	transcriber classifier.Transcriber
	deliverer   *delivery.Deliverer
	images      delivery.ImageSender
	charts      *charts.ChartGenerator
	bgTimeout   time.Duration
	log         logrus.FieldLogger

	tasks sync.WaitGroup
}

func NewHandler(deps Deps) *Handler {
	if deps.BackgroundTimeout <= 0 {
		deps.BackgroundTimeout = defaultBackgroundTimeout
	}
	if deps.Charts == nil {
		deps.Charts = charts.NewChartGenerator()
	}
	return &Handler{
		tracker:     deps.Tracker,
		sessions:    deps.Sessions,
		flows:       flow.NewEngine(deps.Sessions, deps.Tracker, deps.Log),
		classifier:  deps.Classifier,
		transcriber: deps.Transcriber,
		deliverer:   deps.Deliverer,
		images:      deps.Images,
		charts:      deps.Charts,
		bgTimeout:   deps.BackgroundTimeout,
		log:         deps.Log,
	}
}

// Flows возвращает движок сценариев обработчика
func (h *Handler) Flows() *flow.Engine {
	return h.flows
}

// Wait ждет завершения всех фоновых задач
func (h *Handler) Wait() {
	h.tasks.Wait()
}

// HandleMessage возвращает ответ на сообщение. Пустая строка означает, что отвечать не нужно.
// Паника или непредвиденная ошибка превращается в общее сообщение об ошибке.
func (h *Handler) HandleMessage(ctx context.Context, msg Message) (reply string) {
	log := h.log.WithField("user_id", msg.UserID)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Handler.Panic")
			reply = MsgInternalError
		}
	}()

	if msg.Audio == nil && strings.TrimSpace(msg.Text) == "" {
		return ""
	}

	switch msg.Command {
	case "start", "help", "ajuda":
		return MsgHelp
	case "cancelar":
		return h.flows.Cancel(msg.UserID)
	}

	if _, active := h.flows.Active(msg.UserID); active {
		in := flow.Input{Text: msg.Text, Audio: msg.Audio != nil}
		// Голосом в сценарии можно только отменить его
		if msg.Audio != nil && h.transcriber != nil {
			transcribed, err := h.transcribe(ctx, msg.Audio)
			if err != nil {
				log.WithError(err).Error("Handler.Transcribe")
				return MsgInternalError
			}
			in.Text = transcribed
		}
		answer, err := h.flows.Handle(ctx, msg.UserID, in)
		if err != nil {
			log.WithError(err).Error("Handler.Flow")
			return MsgInternalError
		}
		return answer
	}

	text := strings.TrimSpace(msg.Text)
	if msg.Audio != nil {
		if h.transcriber == nil {
			return MsgAudioUnsupported
		}
		transcribed, err := h.transcribe(ctx, msg.Audio)
		if err != nil {
			log.WithError(err).Error("Handler.Transcribe")
			return MsgInternalError
		}
		text = transcribed
		log.WithField("text", text).Debug("Handler.Transcribed")
	}
	if text == "" {
		return ""
	}

	if flow.IsCancellation(text) {
		return h.flows.Cancel(msg.UserID)
	}

	blocked, err := h.tracker.IsBlocked(ctx, msg.UserID)
	if err != nil {
		log.WithError(err).Error("Handler.BlockCheck")
		return MsgInternalError
	}
	if blocked {
		log.Info("Handler.Blocked")
		return MsgBlocked
	}

	intent, err := h.classifier.Classify(ctx, text)
	if err != nil {
		log.WithError(err).Warn("Handler.Classify")
		intent = model.UnknownIntent()
	}

	log = log.WithField("intent", intent.Name)
	log.Debug("Handler.Dispatch")
	answer, err := h.dispatch(ctx, msg.UserID, text, intent)
	if err != nil {
		if userMsg, ok := userMessage(err); ok {
			log.WithError(err).Debug("Handler.Rejected")
			return userMsg
		}
		log.WithError(err).Error("Handler.Dispatch")
		return MsgInternalError
	}
	return answer
}

func (h *Handler) transcribe(ctx context.Context, audio *Audio) (string, error) {
	rc, err := audio.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer rc.Close()
	return h.transcriber.Transcribe(ctx, rc, audio.FileName)
}

// userMessage переводит ошибку проверки в ответ пользователю
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return msgInvalidAmount, true
	case errors.Is(err, service.ErrDistanceRequired):
		return msgDistanceNeeded, true
	case errors.Is(err, service.ErrMessageIDRequired):
		return msgMessageIDNeeded, true
	case errors.Is(err, service.ErrReminderDateRequired), errors.Is(err, service.ErrInvalidReminderDate):
		return msgReminderDate, true
	case errors.Is(err, service.ErrReminderInPast):
		return msgReminderPast, true
	case errors.Is(err, service.ErrInvalidMonth):
		return msgInvalidMonth, true
	case errors.Is(err, service.ErrIDSpaceExhausted):
		return msgIDExhausted, true
	}
	return "", false
}

func (h *Handler) dispatch(ctx context.Context, userID, text string, intent model.Intent) (string, error) {
	data := intent.Data

	switch intent.Name {
	case model.IntentRegisterVehicle:
		return h.flows.StartVehicleRegistration(userID), nil

	case model.IntentAddIncome:
		income, err := h.tracker.AddIncome(ctx, userID, service.IncomeInput{
			Amount:      data.Amount,
			Description: data.Description,
			Category:    data.Category,
			Source:      data.Source,
			Tax:         data.Tax,
			Distance:    data.Distance,
		})
		if err != nil {
			return "", err
		}
		return incomeAddedMessage(income), nil

	case model.IntentAddExpense:
		expense, err := h.tracker.AddExpense(ctx, userID, service.ExpenseInput{
			Amount:      data.Amount,
			Description: data.Description,
			Category:    data.Category,
		})
		if err != nil {
			return "", err
		}
		return expenseAddedMessage(expense), nil

	case model.IntentDeleteTransaction:
		deleted, err := h.tracker.DeleteTransaction(ctx, userID, data.MessageID)
		if errors.Is(err, repository.ErrNotFound) {
			return transactionNotFoundMessage(model.CleanMessageID(data.MessageID)), nil
		}
		if err != nil {
			return "", err
		}
		return transactionDeletedMessage(deleted), nil

	case model.IntentAddReminder:
		reminder, err := h.tracker.AddReminder(ctx, userID, service.ReminderInput{
			Description:     data.Description,
			Date:            data.ReminderDate,
			RelativeMinutes: data.RelativeMinutes,
			Type:            data.Type,
		})
		if err != nil {
			return "", err
		}
		return reminderAddedMessage(reminder, h.tracker.Location()), nil

	case model.IntentDeleteReminder:
		reminder, err := h.tracker.DeleteReminder(ctx, userID, data.MessageID)
		if errors.Is(err, repository.ErrNotFound) {
			return reminderNotFoundMessage(model.CleanMessageID(data.MessageID)), nil
		}
		if err != nil {
			return "", err
		}
		return reminderDeletedMessage(reminder), nil

	case model.IntentListReminders:
		reminders, err := h.tracker.ListReminders(ctx, userID)
		if err != nil {
			return "", err
		}
		return reminderListMessage(reminders, h.tracker.Location()), nil

	case model.IntentGetSummary:
		return h.summary(ctx, userID, data)

	case model.IntentExpensesByCategory:
		breakdown, err := h.tracker.ExpensesByCategory(ctx, userID, data.Month)
		if err != nil {
			return "", err
		}
		if len(breakdown.Items) > 0 {
			h.rememberReport(userID, model.ReportContext{Kind: model.ReportExpenses, Month: breakdown.Month.Key})
		}
		return breakdownMessage(model.ReportExpenses, breakdown), nil

	case model.IntentIncomesBySource:
		breakdown, err := h.tracker.IncomesBySource(ctx, userID, data.Month)
		if err != nil {
			return "", err
		}
		if len(breakdown.Items) > 0 {
			h.rememberReport(userID, model.ReportContext{Kind: model.ReportIncomes, Month: breakdown.Month.Key})
		}
		return breakdownMessage(model.ReportIncomes, breakdown), nil

	case model.IntentTransactionDetails:
		return h.details(ctx, userID, text, data.DetailKind), nil

	case model.IntentGenerateProfitChart:
		return h.profitChart(ctx, userID, data.Days), nil

	case model.IntentGeneratePlatformChart:
		return h.platformChart(ctx, userID, data.Month)

	default:
		return MsgHelp, nil
	}
}

func (h *Handler) summary(ctx context.Context, userID string, data model.IntentData) (string, error) {
	summary, err := h.tracker.Summary(ctx, userID, service.SummaryQuery{
		Month:    data.Month,
		Source:   data.Source,
		Category: data.Category,
	})
	if err != nil {
		return "", err
	}

	report := model.ReportContext{
		Kind:     model.ReportSummary,
		Month:    summary.Month.Key,
		Source:   summary.Source,
		Category: summary.Category,
	}
	switch {
	case summary.Source != "":
		report.Kind = model.ReportIncomes
	case summary.Category != "":
		report.Kind = model.ReportExpenses
	}
	if !summary.Empty() {
		h.rememberReport(userID, report)
	}
	return summaryMessage(summary), nil
}

// rememberReport сохраняет контекст отчета для последующего запроса деталей
func (h *Handler) rememberReport(userID string, report model.ReportContext) {
	h.sessions.Set(userID, &model.Session{Report: &report})
}

func detailKind(requested, text string, report model.ReportContext) model.ReportKind {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case string(model.ReportExpenses):
		return model.ReportExpenses
	case string(model.ReportIncomes):
		return model.ReportIncomes
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "gasto"):
		return model.ReportExpenses
	case strings.Contains(lower, "receita"), strings.Contains(lower, "ganho"):
		return model.ReportIncomes
	}
	return report.Kind
}

// details отвечает сразу, а список записей собирается и отправляется в фоне
func (h *Handler) details(ctx context.Context, userID, text, requested string) string {
	sess, ok := h.sessions.Get(userID)
	if !ok || sess.Report == nil {
		return MsgNoReportContext
	}
	stored := *sess.Report
	report := stored

	kind := detailKind(requested, text, report)
	if kind != model.ReportExpenses && kind != model.ReportIncomes {
		return MsgSpecifyDetails
	}
	if kind != report.Kind {
		report.Source, report.Category = "", ""
	}

	h.spawn(ctx, userID, "details", func(ctx context.Context) error {
		details, err := h.tracker.Details(ctx, userID, kind, report)
		if err != nil {
			return err
		}
		if err := h.deliverer.Deliver(ctx, userID, detailsMessage(details)); err != nil {
			return err
		}
		h.forgetReport(userID, stored)
		return nil
	})
	return MsgDetailsPreparing
}

// forgetReport удаляет контекст отчета, если пользователь за это время не начал новый
func (h *Handler) forgetReport(userID string, report model.ReportContext) {
	sess, ok := h.sessions.Get(userID)
	if !ok || sess.InFlow() || sess.Report == nil || *sess.Report != report {
		return
	}
	h.sessions.Clear(userID)
}

func chartDays(days int) int {
	if days <= 0 {
		days = defaultChartDays
	}
	return min(max(days, minChartDays), maxChartDays)
}

func (h *Handler) profitChart(ctx context.Context, userID string, days int) string {
	days = chartDays(days)

	h.spawn(ctx, userID, "profit_chart", func(ctx context.Context) error {
		report, err := h.tracker.ProfitReport(ctx, userID, days)
		if err != nil {
			return err
		}
		png, err := h.charts.ProfitChart(report)
		if errors.Is(err, charts.ErrNoData) {
			return h.deliverer.Deliver(ctx, userID, MsgNoChartData)
		}
		if err != nil {
			return err
		}
		return h.images.SendImage(ctx, userID, png, profitChartCaption(report))
	})
	return profitChartAck(days)
}

func (h *Handler) platformChart(ctx context.Context, userID, month string) (string, error) {
	window, err := service.ResolveMonth(month, h.tracker.Now(), h.tracker.Location())
	if err != nil {
		return "", err
	}

	h.spawn(ctx, userID, "platform_chart", func(ctx context.Context) error {
		breakdown, err := h.tracker.IncomesBySource(ctx, userID, window.Key)
		if err != nil {
			return err
		}
		png, err := h.charts.PlatformChart(breakdown)
		if errors.Is(err, charts.ErrNoData) {
			return h.deliverer.Deliver(ctx, userID, MsgNoChartData)
		}
		if err != nil {
			return err
		}
		return h.images.SendImage(ctx, userID, png, platformChartCaption(breakdown))
	})
	return platformChartAck(window), nil
}

// spawn запускает фоновую задачу, не связанную с завершением входящего запроса.
// Ошибки и паники задачи только логируются.
func (h *Handler) spawn(ctx context.Context, userID, task string, fn func(ctx context.Context) error) {
	h.tasks.Add(1)
	go func() {
		defer h.tasks.Done()
		log := h.log.WithFields(logrus.Fields{"user_id": userID, "task": task})
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Handler.Background.Panic")
			}
		}()

		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.bgTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(taskCtx); err != nil {
			log.WithError(err).Error("Handler.Background.Failed")
			return
		}
		log.WithField("duration", time.Since(start)).Debug("Handler.Background.Done")
	}()
}
