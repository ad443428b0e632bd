package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/telegram/handlers"
	"github.com/futig/advisor-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sent    []string
	stopped bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type recordingHandler struct {
	mu    sync.Mutex
	calls []string
	err   error
	panic bool
}

func (h *recordingHandler) record(kind string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panic {
		panic("handler exploded")
	}
	h.calls = append(h.calls, kind)
	return h.err
}

func (h *recordingHandler) HandleCommand(context.Context, *handlers.Message) error {
	return h.record("command")
}

func (h *recordingHandler) HandleText(context.Context, *handlers.Message) error {
	return h.record("text")
}

func (h *recordingHandler) HandleCallback(context.Context, *handlers.Message) error {
	return h.record("callback")
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func testConfig() *config.TelegramConfig {
	return &config.TelegramConfig{
		UpdateTimeout:      1,
		RateLimitPerMinute: 60,
		RateLimitBurst:     10,
		ShutdownTimeout:    1,
	}
}

func textUpdate(id int, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: 70},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: id, Message: msg}
}

func TestBot_RoutesUpdates(t *testing.T) {
	api := newFakeAPI()
	h := &recordingHandler{}
	b := New(testConfig(), api, h, zap.NewNop())

	require.NoError(t, b.Start(context.Background()))

	api.updates <- textUpdate(1, "/start")
	api.updates <- textUpdate(2, "혈압 관리 방법")
	api.updates <- tgbotapi.Update{UpdateID: 3, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 70}},
		Data:    "cat:health",
	}}

	assert.Eventually(t, func() bool { return len(h.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"command", "text", "callback"}, h.snapshot())

	require.NoError(t, b.Stop())
	assert.True(t, api.stopped)
}

func TestBot_HandlerErrorSendsGenericMessage(t *testing.T) {
	api := newFakeAPI()
	b := New(testConfig(), api, &recordingHandler{err: errors.New("boom")}, zap.NewNop())

	require.NoError(t, b.Start(context.Background()))
	api.updates <- textUpdate(1, "질문")

	assert.Eventually(t, func() bool {
		sent := api.sentTexts()
		return len(sent) == 1 && sent[0] == render.ErrGeneric
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.Stop())
}

func TestBot_PanicIsRecovered(t *testing.T) {
	api := newFakeAPI()
	b := New(testConfig(), api, &recordingHandler{panic: true}, zap.NewNop())

	require.NoError(t, b.Start(context.Background()))
	api.updates <- textUpdate(1, "질문")

	assert.Eventually(t, func() bool {
		sent := api.sentTexts()
		return len(sent) == 1 && sent[0] == render.ErrGeneric
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.Stop())
}

func TestBot_UpdatesAfterStopAreDropped(t *testing.T) {
	api := newFakeAPI()
	h := &recordingHandler{}
	b := New(testConfig(), api, h, zap.NewNop())
	b.updatesChan = api.updates

	require.NoError(t, b.Stop())
	for i := 1; i <= cap(api.updates); i++ {
		api.updates <- textUpdate(i, "질문")
	}

	// each loop either sees the stop signal or drops the pending update
	ctx := context.Background()
	for i := 0; i < cap(api.updates); i++ {
		b.processUpdates(ctx)
	}

	b.wg.Wait()
	assert.Empty(t, h.snapshot())
	assert.NoError(t, b.Stop(), "second Stop is a no-op")
}
