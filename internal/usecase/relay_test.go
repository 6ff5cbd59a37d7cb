package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"airchat-bot/internal/domain"
	"airchat-bot/internal/llm"
	"airchat-bot/internal/models"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	sent        []sentMessage
	typingChats []int64
	sendErr     error
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *fakeMessenger) SendTyping(_ context.Context, chatID int64) {
	m.typingChats = append(m.typingChats, chatID)
}

type appendedTurn struct {
	userID    int64
	user      string
	assistant string
}

type fakeState struct {
	cfg        domain.UserConfig
	cfgErr     error
	history    []domain.ChatMessage
	historyErr error
	appended   []appendedTurn
	appendErr  error
}

func (s *fakeState) GetUserConfig(_ context.Context, _ int64) (domain.UserConfig, error) {
	return s.cfg, s.cfgErr
}

func (s *fakeState) MessagesForLLM(_ context.Context, _ int64, newText string) ([]domain.ChatMessage, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	msgs := append([]domain.ChatMessage{}, s.history...)
	return append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: newText}), nil
}

func (s *fakeState) AppendTurn(_ context.Context, userID int64, userText, assistantText string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, appendedTurn{userID: userID, user: userText, assistant: assistantText})
	return nil
}

type fakeDispatcher struct {
	res     llm.Result
	gotCfg  domain.UserConfig
	gotMsgs []domain.ChatMessage
	called  int
}

func (d *fakeDispatcher) Dispatch(_ context.Context, cfg domain.UserConfig, messages []domain.ChatMessage) llm.Result {
	d.called++
	d.gotCfg = cfg
	d.gotMsgs = messages
	return d.res
}

type fakeCommander struct {
	reply   string
	err     error
	gotText string
	gotUser int64
	called  int
}

func (c *fakeCommander) Handle(_ context.Context, text string, userID int64) (string, error) {
	c.called++
	c.gotText = text
	c.gotUser = userID
	return c.reply, c.err
}

type relayFixture struct {
	messenger  *fakeMessenger
	state      *fakeState
	dispatcher *fakeDispatcher
	commander  *fakeCommander
	svc        *RelayService
}

func newFixture(t *testing.T) *relayFixture {
	t.Helper()
	f := &relayFixture{
		messenger:  &fakeMessenger{},
		state:      &fakeState{cfg: domain.UserConfig{Model: models.DefaultModel, GeminiKey: "AIza"}},
		dispatcher: &fakeDispatcher{res: llm.Result{Text: "answer"}},
		commander:  &fakeCommander{reply: "command reply"},
	}
	svc, err := NewRelayService(f.messenger, f.state, f.dispatcher, f.commander)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func textUpdate(text string) []byte {
	return []byte(`{"update_id":10,"message":{"message_id":1,"from":{"id":55,"is_bot":false,"first_name":"Ada"},"chat":{"id":77,"type":"private"},"date":1,"text":"` + text + `"}}`)
}

func TestNewRelayService_Validation(t *testing.T) {
	m, s, d, c := &fakeMessenger{}, &fakeState{}, &fakeDispatcher{}, &fakeCommander{}

	_, err := NewRelayService(nil, s, d, c)
	require.Error(t, err)
	_, err = NewRelayService(m, nil, d, c)
	require.Error(t, err)
	_, err = NewRelayService(m, s, nil, c)
	require.Error(t, err)
	_, err = NewRelayService(m, s, d, nil)
	require.Error(t, err)
}

func TestHandleUpdate_ChatHappyPath(t *testing.T) {
	f := newFixture(t)
	f.state.history = []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "earlier"},
		{Role: domain.RoleAssistant, Content: "reply"},
	}

	require.NoError(t, f.svc.HandleUpdate(context.Background(), textUpdate("hello")))

	require.Equal(t, []int64{77}, f.messenger.typingChats, "typing indicator before the LLM call")
	require.Equal(t, 1, f.dispatcher.called)
	require.Equal(t, f.state.cfg, f.dispatcher.gotCfg)
	require.Len(t, f.dispatcher.gotMsgs, 3, "history plus the new message")
	require.Equal(t, "hello", f.dispatcher.gotMsgs[2].Content)

	require.Equal(t, []appendedTurn{{userID: 55, user: "hello", assistant: "answer"}}, f.state.appended)
	require.Equal(t, []sentMessage{{chatID: 77, text: "answer"}}, f.messenger.sent)
	require.Equal(t, 0, f.commander.called)
}

func TestHandleUpdate_CommandRouted(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.HandleUpdate(context.Background(), textUpdate("/status")))

	require.Equal(t, 1, f.commander.called)
	require.Equal(t, "/status", f.commander.gotText)
	require.Equal(t, int64(55), f.commander.gotUser)
	require.Equal(t, []sentMessage{{chatID: 77, text: "command reply"}}, f.messenger.sent)
	require.Equal(t, 0, f.dispatcher.called, "commands never reach the LLM")
	require.Empty(t, f.messenger.typingChats, "no typing indicator for commands")
}

func TestHandleUpdate_MalformedDroppedSilently(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleUpdate(context.Background(), []byte("not-json"))
	require.Error(t, err, "reported for logging")
	require.Empty(t, f.messenger.sent, "no reply to an unparseable update")
	require.Equal(t, 0, f.dispatcher.called)
}

func TestHandleUpdate_NonTextIgnored(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.HandleUpdate(context.Background(), []byte(`{"update_id":10}`)))
	require.Empty(t, f.messenger.sent)
	require.Equal(t, 0, f.dispatcher.called)
	require.Equal(t, 0, f.commander.called)
}

func TestHandleUpdate_DispatchFailureSendsErrorText(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.res = llm.Result{Err: &llm.Error{
		Kind:     llm.KindMissingCredential,
		Provider: "gemini",
		Message:  "No Gemini API key configured.",
	}}

	require.NoError(t, f.svc.HandleUpdate(context.Background(), textUpdate("hello")))

	require.Equal(t, []sentMessage{{chatID: 77, text: "❌ No Gemini API key configured."}}, f.messenger.sent)
	require.Empty(t, f.state.appended, "failed exchanges are not persisted")
}

func TestHandleUpdate_ConfigErrorNotifiesUser(t *testing.T) {
	f := newFixture(t)
	f.state.cfgErr = errors.New("dynamo down")

	err := f.svc.HandleUpdate(context.Background(), textUpdate("hello"))
	require.Error(t, err)
	require.Len(t, f.messenger.sent, 1)
	require.True(t, strings.HasPrefix(f.messenger.sent[0].text, "❌ Error:"))
	require.Equal(t, 0, f.dispatcher.called)
}

func TestHandleUpdate_HistoryErrorNotifiesUser(t *testing.T) {
	f := newFixture(t)
	f.state.historyErr = errors.New("dynamo down")

	err := f.svc.HandleUpdate(context.Background(), textUpdate("hello"))
	require.Error(t, err)
	require.Len(t, f.messenger.sent, 1)
	require.True(t, strings.HasPrefix(f.messenger.sent[0].text, "❌ Error:"))
	require.Equal(t, 0, f.dispatcher.called)
}

func TestHandleUpdate_AppendFailureStillDelivers(t *testing.T) {
	f := newFixture(t)
	f.state.appendErr = errors.New("dynamo down")

	require.NoError(t, f.svc.HandleUpdate(context.Background(), textUpdate("hello")))
	require.Equal(t, []sentMessage{{chatID: 77, text: "answer"}}, f.messenger.sent,
		"a history write failure must not cost the user their answer")
}

func TestHandleUpdate_CommandErrorNotifiesUser(t *testing.T) {
	f := newFixture(t)
	f.commander.err = errors.New("dynamo down")

	err := f.svc.HandleUpdate(context.Background(), textUpdate("/clear"))
	require.Error(t, err)
	require.Len(t, f.messenger.sent, 1)
	require.True(t, strings.HasPrefix(f.messenger.sent[0].text, "❌ Error:"))
}

func TestHandleUpdate_DeliveryFailureReported(t *testing.T) {
	f := newFixture(t)
	f.messenger.sendErr = errors.New("bad gateway")

	err := f.svc.HandleUpdate(context.Background(), textUpdate("hello"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "send reply")
}

func TestHandleUpdate_SenderFallsBackToChatID(t *testing.T) {
	f := newFixture(t)
	raw := []byte(`{"update_id":10,"message":{"message_id":1,"chat":{"id":77,"type":"private"},"date":1,"text":"/status"}}`)

	require.NoError(t, f.svc.HandleUpdate(context.Background(), raw))
	require.Equal(t, int64(77), f.commander.gotUser)
}
