package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func postSMS(t *testing.T, s *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_RepliesWithTwiML(t *testing.T) {
	var gotFrom, gotBody string
	s := NewServer(func(_ context.Context, from, body string) string {
		gotFrom, gotBody = from, body
		return "Added: Tom & Jerry (5105935336)"
	}, nil, zerolog.Nop())

	rec := postSMS(t, s, url.Values{"From": {"+15105550001"}, "Body": {"Tom 5105935336"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+15105550001", gotFrom)
	assert.Equal(t, "Tom 5105935336", gotBody)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<Response><Message>Added: Tom &amp; Jerry (5105935336)</Message></Response>")
}

func TestWebhook_EmptyReply(t *testing.T) {
	s := NewServer(func(context.Context, string, string) string { return "" }, nil, zerolog.Nop())

	rec := postSMS(t, s, url.Values{"From": {"+15105550001"}, "Body": {"hi"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Response></Response>")
	assert.NotContains(t, rec.Body.String(), "<Message>")
}

func TestWebhook_MissingFrom(t *testing.T) {
	s := NewServer(func(context.Context, string, string) string { return "x" }, nil, zerolog.Nop())

	rec := postSMS(t, s, url.Values{"Body": {"hi"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s := NewServer(nil, pinger{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	s = NewServer(nil, pinger{err: errors.New("db gone")}, zerolog.Nop())
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTwilioSender_Send(t *testing.T) {
	var (
		path string
		form url.Values
		user string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, _, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer ts.Close()

	s := NewTwilioSender(ts.URL, "AC42", "secret", "+15105550000", zerolog.Nop())
	require.NoError(t, s.Send(context.Background(), "5105935336", "Hi John!"))

	assert.Equal(t, "/2010-04-01/Accounts/AC42/Messages.json", path)
	assert.Equal(t, "AC42", user)
	assert.Equal(t, "+15105935336", form.Get("To"))
	assert.Equal(t, "+15105550000", form.Get("From"))
	assert.Equal(t, "Hi John!", form.Get("Body"))
}

func TestTwilioSender_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer ts.Close()

	s := NewTwilioSender(ts.URL, "AC42", "secret", "+15105550000", zerolog.Nop())
	err := s.Send(context.Background(), "5105935336", "Hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioSender_NotConfigured(t *testing.T) {
	s := NewTwilioSender("http://localhost", "", "", "", zerolog.Nop())
	assert.Error(t, s.Send(context.Background(), "5105935336", "Hi"))
}
