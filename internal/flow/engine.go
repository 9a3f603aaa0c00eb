// Package flow реализует пошаговые сценарии диалога, которые перехватывают сообщения пользователя,
// пока сценарий активен.
package flow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/driver_bot/internal/model"
	"github.com/ivanoskov/driver_bot/internal/session"
)

var cancelKeywords = []string{"cancelar", "parar", "sair"}

var confirmWords = []string{"sim", "s"}

var (
	yearPattern = regexp.MustCompile(`^\d{4}$`)
	nonDigits   = regexp.MustCompile(`\D`)
)

// IsCancellation сообщает, является ли сообщение командой отмены
func IsCancellation(text string) bool {
	return matchesAny(text, cancelKeywords)
}

func isConfirmation(text string) bool {
	return matchesAny(text, confirmWords)
}

func matchesAny(text string, words []string) bool {
	text = strings.ToLower(strings.TrimRight(strings.TrimSpace(text), ".!?,;"))
	for _, w := range words {
		if text == w {
			return true
		}
	}
	return false
}

// VehicleRegistrar сохраняет автомобиль по завершении сценария
type VehicleRegistrar interface {
	RegisterVehicle(ctx context.Context, userID string, draft model.VehicleDraft) (*model.Vehicle, error)
}

// Input представляет одно входящее сообщение внутри сценария
type Input struct {
	Text  string
	Audio bool
}

// Engine ведет сценарии пользователей по шагам
type Engine struct {
	sessions  session.Store
	registrar VehicleRegistrar
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewEngine создает движок сценариев
func NewEngine(sessions session.Store, registrar VehicleRegistrar, log logrus.FieldLogger) *Engine {
	return &Engine{
		sessions:  sessions,
		registrar: registrar,
		now:       time.Now,
		log:       log,
	}
}

// SetClock подменяет источник текущего времени
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Active возвращает активную сессию сценария, если она есть
func (e *Engine) Active(userID string) (*model.Session, bool) {
	sess, ok := e.sessions.Get(userID)
	if !ok || !sess.InFlow() {
		return nil, false
	}
	return sess, true
}

// StartVehicleRegistration открывает сценарий регистрации автомобиля
func (e *Engine) StartVehicleRegistration(userID string) string {
	e.sessions.Set(userID, &model.Session{
		Flow: model.FlowVehicleRegistration,
		Step: model.StepAwaitingBrand,
	})
	e.log.WithField("user_id", userID).Debug("Flow.Start")
	return MsgVehicleStart
}

// Cancel завершает активный сценарий пользователя.
// Без сценария сессия с контекстом отчета остается на месте.
func (e *Engine) Cancel(userID string) string {
	if _, active := e.Active(userID); !active {
		return MsgNothingToCancel
	}
	e.sessions.Clear(userID)
	e.log.WithField("user_id", userID).Info("Flow.Cancel")
	return MsgCancelled
}

// Handle обрабатывает сообщение пользователя с активным сценарием и возвращает ответ.
// Ошибка возвращается только при сбое сохранения, сессия в этом случае не меняется.
func (e *Engine) Handle(ctx context.Context, userID string, in Input) (string, error) {
	sess, ok := e.Active(userID)
	if !ok {
		return "", fmt.Errorf("no active flow for user %s", userID)
	}
	if IsCancellation(in.Text) {
		return e.Cancel(userID), nil
	}
	if in.Audio {
		return MsgTextOnly, nil
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return MsgEmptyAnswer, nil
	}

	switch sess.Flow {
	case model.FlowVehicleRegistration:
		return e.vehicleStep(ctx, userID, sess, text)
	default:
		e.sessions.Clear(userID)
		return "", fmt.Errorf("unknown flow %q", sess.Flow)
	}
}

func (e *Engine) vehicleStep(ctx context.Context, userID string, sess *model.Session, text string) (string, error) {
	confirmed := isConfirmation(text)
	var reply string

	switch sess.Step {
	case model.StepAwaitingBrand:
		sess.PendingValue = text
		sess.Step = model.StepConfirmingBrand
		reply = fmt.Sprintf(msgBrandTyped, text)

	case model.StepConfirmingBrand:
		if confirmed {
			sess.Vehicle.Brand = sess.PendingValue
			sess.PendingValue = ""
			sess.Step = model.StepAwaitingModel
			reply = msgBrandConfirmed
		} else {
			sess.PendingValue = text
			reply = fmt.Sprintf(msgTextRetyped, text)
		}

	case model.StepAwaitingModel:
		sess.PendingValue = text
		sess.Step = model.StepConfirmingModel
		reply = fmt.Sprintf(msgModelTyped, text)

	case model.StepConfirmingModel:
		if confirmed {
			sess.Vehicle.Model = sess.PendingValue
			sess.PendingValue = ""
			sess.Step = model.StepAwaitingYear
			reply = msgModelConfirmed
		} else {
			sess.PendingValue = text
			reply = fmt.Sprintf(msgTextRetyped, text)
		}

	case model.StepAwaitingYear:
		year, ok := e.parseYear(text)
		if !ok {
			return msgYearInvalid, nil
		}
		sess.PendingValue = strconv.Itoa(year)
		sess.Step = model.StepConfirmingYear
		reply = fmt.Sprintf(msgYearTyped, year)

	case model.StepConfirmingYear:
		if confirmed {
			year, _ := strconv.Atoi(sess.PendingValue)
			sess.Vehicle.Year = year
			sess.PendingValue = ""
			sess.Step = model.StepAwaitingMileage
			reply = msgYearConfirmed
		} else {
			year, ok := e.parseYear(text)
			if !ok {
				return msgYearInvalidAgain, nil
			}
			sess.PendingValue = strconv.Itoa(year)
			reply = fmt.Sprintf(msgYearRetyped, year)
		}

	case model.StepAwaitingMileage:
		mileage, ok := parseMileage(text)
		if !ok {
			return msgMileageInvalid, nil
		}
		sess.PendingValue = strconv.FormatInt(mileage, 10)
		sess.Step = model.StepConfirmingMileage
		reply = fmt.Sprintf(msgMileageTyped, mileage)

	case model.StepConfirmingMileage:
		if confirmed {
			return e.finishVehicle(ctx, userID, sess)
		}
		mileage, ok := parseMileage(text)
		if !ok {
			return msgMileageInvalidAgain, nil
		}
		sess.PendingValue = strconv.FormatInt(mileage, 10)
		reply = fmt.Sprintf(msgMileageRetyped, mileage)

	default:
		e.sessions.Clear(userID)
		return "", fmt.Errorf("unknown vehicle registration step %q", sess.Step)
	}

	e.sessions.Set(userID, sess)
	return reply, nil
}

func (e *Engine) finishVehicle(ctx context.Context, userID string, sess *model.Session) (string, error) {
	mileage, err := strconv.ParseInt(sess.PendingValue, 10, 64)
	if err != nil {
		e.sessions.Clear(userID)
		return "", fmt.Errorf("invalid pending mileage %q: %w", sess.PendingValue, err)
	}
	sess.Vehicle.Mileage = mileage

	vehicle, err := e.registrar.RegisterVehicle(ctx, userID, sess.Vehicle)
	if err != nil {
		return "", fmt.Errorf("failed to register vehicle: %w", err)
	}

	e.sessions.Clear(userID)
	e.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"vehicle_id": vehicle.ID,
	}).Info("Flow.VehicleRegistered")
	return fmt.Sprintf(msgVehicleRegistered, vehicle.Brand, vehicle.Model), nil
}

// parseYear принимает ровно 4 цифры и год не дальше следующего
func (e *Engine) parseYear(text string) (int, bool) {
	if !yearPattern.MatchString(text) {
		return 0, false
	}
	year, err := strconv.Atoi(text)
	if err != nil || year > e.now().Year()+1 {
		return 0, false
	}
	return year, true
}

func parseMileage(text string) (int64, bool) {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	mileage, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return mileage, true
}
