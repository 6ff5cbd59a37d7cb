package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUpdate_Valid(t *testing.T) {
	raw := []byte(`{"update_id":123,"message":{"message_id":1,"from":{"id":55,"is_bot":false,"first_name":"Ada"},"chat":{"id":77,"type":"private"},"date":1700000000,"text":"hello"}}`)
	u, err := ParseUpdate(raw)
	require.NoError(t, err)
	require.Equal(t, int64(123), *u.UpdateID)
	require.Equal(t, "hello", u.Message.Text)
}

func TestParseUpdate_UpdateIDZeroIsValid(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"update_id":0}`))
	require.NoError(t, err)
	require.Equal(t, int64(0), *u.UpdateID)
}

func TestParseUpdate_MissingUpdateID(t *testing.T) {
	_, err := ParseUpdate([]byte(`{"message":{"text":"hi","chat":{"id":1}}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "update_id")
}

func TestParseUpdate_MalformedJSON(t *testing.T) {
	for _, raw := range []string{`not-json`, `[]`, `"str"`, ``} {
		_, err := ParseUpdate([]byte(raw))
		require.Error(t, err, "raw=%q", raw)
	}
}

func TestExtractMessage_HappyPath(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"update_id":1,"message":{"message_id":1,"from":{"id":55,"is_bot":false,"first_name":"Ada"},"chat":{"id":77,"type":"private"},"date":1,"text":"hi"}}`))
	require.NoError(t, err)

	msg := ExtractMessage(u)
	require.NotNil(t, msg)
	require.Equal(t, int64(77), msg.ChatID)
	require.Equal(t, int64(55), msg.SenderID)
	require.Equal(t, "hi", msg.Text)
}

func TestExtractMessage_SenderFallsBackToChat(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"update_id":1,"message":{"message_id":1,"chat":{"id":77,"type":"channel"},"date":1,"text":"hi"}}`))
	require.NoError(t, err)

	msg := ExtractMessage(u)
	require.NotNil(t, msg)
	require.Equal(t, int64(77), msg.SenderID)
}

func TestExtractMessage_NonTextRejected(t *testing.T) {
	// No message at all.
	u, err := ParseUpdate([]byte(`{"update_id":1}`))
	require.NoError(t, err)
	require.Nil(t, ExtractMessage(u))

	// Message without a text body (e.g. a photo).
	u, err = ParseUpdate([]byte(`{"update_id":1,"message":{"message_id":1,"chat":{"id":77,"type":"private"},"date":1}}`))
	require.NoError(t, err)
	require.Nil(t, ExtractMessage(u))

	require.Nil(t, ExtractMessage(nil))
}
