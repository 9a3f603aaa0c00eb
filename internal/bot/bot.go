package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/driver_bot/internal/delivery"
)

// MessageHandler отвечает на входящее сообщение
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) string
}

// Bot реализует транспорт Telegram: принимает обновления и отправляет ответы
type Bot struct {
	api       *tgbotapi.BotAPI
	http      tgbotapi.HTTPClient
	deliverer *delivery.Deliverer
	log       logrus.FieldLogger
}

func NewBot(token string, maxChars int, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(api, maxChars, log), nil
}

// NewBotWithEndpoint создает бота для другого адреса Bot API
func NewBotWithEndpoint(token, endpoint string, client *http.Client, maxChars int, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, err
	}
	return newBot(api, maxChars, log), nil
}

func newBot(api *tgbotapi.BotAPI, maxChars int, log logrus.FieldLogger) *Bot {
	b := &Bot{
		api:  api,
		http: api.Client,
		log:  log,
	}
	b.deliverer = delivery.NewDeliverer(b, maxChars, log)
	return b
}

// Deliverer возвращает отправителя длинных ответов через этого бота
func (b *Bot) Deliverer() *delivery.Deliverer {
	return b.deliverer
}

// Start запускает бота в режиме long polling.
// Каждое обновление обрабатывается в своей горутине, при отмене ctx бот дожидается их завершения.
func (b *Bot) Start(ctx context.Context, handler MessageHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.WithField("username", b.api.Self.UserName).Info("Bot.Start")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := b.handleUpdate(ctx, handler, update); err != nil {
					b.log.WithError(err).Error("Bot.HandleUpdate")
				}
			}()
		}
	}
}

// HandleWebhook - точка входа для обработки входящих webhook-обновлений
func (b *Bot) HandleWebhook(ctx context.Context, body []byte, handler MessageHandler) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return err
	}
	return b.handleUpdate(ctx, handler, update)
}

func (b *Bot) handleUpdate(ctx context.Context, handler MessageHandler, update tgbotapi.Update) error {
	msg, ok := b.messageFromUpdate(update)
	if !ok {
		return nil
	}
	reply := handler.HandleMessage(ctx, msg)
	if reply == "" {
		return nil
	}
	return b.deliverer.Deliver(ctx, msg.UserID, reply)
}

// messageFromUpdate переводит обновление Telegram в Message.
// Идентификатором пользователя служит идентификатор чата.
func (b *Bot) messageFromUpdate(update tgbotapi.Update) (Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return Message{}, false
	}

	msg := Message{
		UserID: strconv.FormatInt(m.Chat.ID, 10),
		Text:   m.Text,
	}
	if m.IsCommand() {
		msg.Command = m.Command()
	}
	if m.Text == "" && m.Caption != "" {
		msg.Text = m.Caption
	}

	switch {
	case m.Voice != nil:
		msg.Audio = b.audio(m.Voice.FileID, "voice.ogg")
	case m.Audio != nil:
		name := m.Audio.FileName
		if name == "" {
			name = "audio.mp3"
		}
		msg.Audio = b.audio(m.Audio.FileID, name)
	}
	return msg, true
}

func (b *Bot) audio(fileID, fileName string) *Audio {
	return &Audio{
		FileName: fileName,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return b.openFile(ctx, fileID)
		},
	}
}

// openFile скачивает файл с серверов Telegram
func (b *Bot) openFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d downloading file", resp.StatusCode)
	}
	return resp.Body, nil
}

func chatID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", userID, err)
	}
	return id, nil
}

// SendText отправляет сообщение с разметкой Markdown.
// Если Telegram отклонил запрос с кодом 400, сообщение уходит простым текстом.
// Прочие ошибки возвращаются без повтора, сообщение могло уже дойти.
func (b *Bot) SendText(ctx context.Context, userID, text string) error {
	id, err := chatID(userID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = b.api.Send(msg)
	if err == nil {
		return nil
	}
	if !isBadRequest(err) {
		return fmt.Errorf("failed to send message: %w", err)
	}
	b.log.WithError(err).WithField("user_id", userID).Debug("Bot.SendText.Markdown")

	msg.ParseMode = ""
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func isBadRequest(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest
}

// SendImage отправляет PNG с подписью
func (b *Bot) SendImage(ctx context.Context, userID string, png []byte, caption string) error {
	id, err := chatID(userID)
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(id, tgbotapi.FileBytes{Name: "chart.png", Bytes: png})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}
