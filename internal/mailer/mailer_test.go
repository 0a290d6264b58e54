package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingMailer struct{ calls int }

func (f *failingMailer) Send(context.Context, string, string, string) error {
	f.calls++
	return errors.New("smtp down")
}

func TestFallbackNeverErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	primary := &failingMailer{}
	m := &Fallback{Primary: primary, Console: Console{Logger: zap.New(core)}}

	err := m.Send(context.Background(), "user@example.com", "Verify", "body text")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)

	assert.Equal(t, 1, logs.FilterMessage("mail delivery failed").Len())
	printed := logs.FilterMessage("mail not delivered, printing instead").All()
	require.Len(t, printed, 1)
	assert.Equal(t, "user@example.com", printed[0].ContextMap()["to"])
	assert.Equal(t, "body text", printed[0].ContextMap()["body"])
}

func TestNewWithoutKeyUsesConsole(t *testing.T) {
	m := New("", "noreply@example.com", zap.NewNop())
	_, ok := m.(Console)
	assert.True(t, ok)
	assert.NoError(t, m.Send(context.Background(), "a@example.com", "s", "b"))
}

func TestSendGridPostsMessage(t *testing.T) {
	var got struct {
		auth string
		path string
		body map[string]interface{}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		got.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg := &SendGrid{APIKey: "SG.key", Sender: "noreply@example.com", Host: srv.URL}
	require.NoError(t, sg.Send(context.Background(), "user@example.com", "Verify", "hello"))

	assert.Equal(t, "Bearer SG.key", got.auth)
	assert.Equal(t, "/v3/mail/send", got.path)
	assert.Equal(t, "Verify", got.body["subject"])
	from, _ := got.body["from"].(map[string]interface{})
	assert.Equal(t, "noreply@example.com", from["email"])
}

func TestSendGridReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errors":[{"message":"bad key"}]}`)
	}))
	defer srv.Close()

	sg := &SendGrid{APIKey: "wrong", Sender: "noreply@example.com", Host: srv.URL}
	assert.Error(t, sg.Send(context.Background(), "user@example.com", "Verify", "hello"))
}

func TestVerificationBody(t *testing.T) {
	body := VerificationBody("", "user@example.com", "http://localhost:8080/verify/abc", "abc")
	assert.Contains(t, body, "Hello user@example.com")
	assert.Contains(t, body, "http://localhost:8080/verify/abc")
	assert.Contains(t, body, "token: abc")
	assert.Contains(t, body, "did not register")

	assert.Contains(t, VerificationBody("Fatima", "f@example.com", "l", "t"), "Hello Fatima")
}
