package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123:abc"

// telegramServer имитирует Bot API и запоминает параметры sendMessage
type telegramServer struct {
	mu             sync.Mutex
	sent           []map[string]string
	rejectMarkdown bool
	failAll        bool
}

func (s *telegramServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"ADAP","username":"adap_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		s.mu.Lock()
		s.sent = append(s.sent, map[string]string{
			"chat_id":    r.Form.Get("chat_id"),
			"text":       r.Form.Get("text"),
			"parse_mode": r.Form.Get("parse_mode"),
		})
		reject := s.rejectMarkdown && r.Form.Get("parse_mode") != ""
		failAll := s.failAll
		s.mu.Unlock()
		if failAll {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5"}`))
			return
		}
		if reject {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func (s *telegramServer) Sent() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.sent...)
}

func newTestBot(t *testing.T, srv *telegramServer) *Bot {
	t.Helper()
	server := httptest.NewServer(srv)
	t.Cleanup(server.Close)

	logger, _ := test.NewNullLogger()
	b, err := NewBotWithEndpoint(testToken, server.URL+"/bot%s/%s", server.Client(), 10, logger)
	require.NoError(t, err)
	return b
}

type staticHandler struct {
	reply string
	got   []Message
}

func (h *staticHandler) HandleMessage(ctx context.Context, msg Message) string {
	h.got = append(h.got, msg)
	return h.reply
}

func TestBot_SendTextFallsBackToPlainText(t *testing.T) {
	srv := &telegramServer{rejectMarkdown: true}
	b := newTestBot(t, srv)

	require.NoError(t, b.SendText(context.Background(), "42", "*oi*"))

	sent := srv.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, tgbotapi.ModeMarkdown, sent[0]["parse_mode"])
	assert.Empty(t, sent[1]["parse_mode"])
	assert.Equal(t, "*oi*", sent[1]["text"])
}

func TestBot_SendTextDoesNotResendOnOtherErrors(t *testing.T) {
	srv := &telegramServer{failAll: true}
	b := newTestBot(t, srv)

	assert.Error(t, b.SendText(context.Background(), "42", "*oi*"))
	assert.Len(t, srv.Sent(), 1)
}

func TestIsBadRequest(t *testing.T) {
	assert.True(t, isBadRequest(&tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}))
	assert.False(t, isBadRequest(&tgbotapi.Error{Code: 429}))
	assert.False(t, isBadRequest(context.DeadlineExceeded))
}

func TestBot_SendTextInvalidUser(t *testing.T) {
	b := newTestBot(t, &telegramServer{})

	assert.Error(t, b.SendText(context.Background(), "whatsapp:+55", "oi"))
}

func TestBot_HandleWebhookChunksReply(t *testing.T) {
	srv := &telegramServer{}
	b := newTestBot(t, srv)
	handler := &staticHandler{reply: "linha um\nlinha dois"}

	update := tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 42},
			Text:      "resumo",
		},
	}
	body, err := json.Marshal(update)
	require.NoError(t, err)

	require.NoError(t, b.HandleWebhook(context.Background(), body, handler))

	require.Len(t, handler.got, 1)
	assert.Equal(t, "42", handler.got[0].UserID)
	assert.Equal(t, "resumo", handler.got[0].Text)

	sent := srv.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "linha um", sent[0]["text"])
	assert.Equal(t, "linha dois", sent[1]["text"])
	assert.Equal(t, "42", sent[0]["chat_id"])
}

func TestBot_HandleWebhookIgnoresEmptyReply(t *testing.T) {
	srv := &telegramServer{}
	b := newTestBot(t, srv)

	body := []byte(`{"update_id":2,"edited_message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"x"}}`)
	require.NoError(t, b.HandleWebhook(context.Background(), body, &staticHandler{reply: "oi"}))
	assert.Empty(t, srv.Sent())

	assert.Error(t, b.HandleWebhook(context.Background(), []byte("{"), &staticHandler{}))
}

func TestBot_MessageFromUpdate(t *testing.T) {
	b := newTestBot(t, &telegramServer{})

	msg, ok := b.messageFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 42},
		Text:     "/start",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}})
	require.True(t, ok)
	assert.Equal(t, "start", msg.Command)
	assert.Nil(t, msg.Audio)

	msg, ok = b.messageFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: 42},
		Voice: &tgbotapi.Voice{FileID: "voice-1"},
	}})
	require.True(t, ok)
	require.NotNil(t, msg.Audio)
	assert.Equal(t, "voice.ogg", msg.Audio.FileName)
	assert.Empty(t, msg.Text)

	_, ok = b.messageFromUpdate(tgbotapi.Update{})
	assert.False(t, ok)
}
