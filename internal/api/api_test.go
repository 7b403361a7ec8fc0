package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyotin/queueline/internal/bus"
	"github.com/anyotin/queueline/internal/session"
	"github.com/anyotin/queueline/internal/ticket"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	sessions, err := session.New("0123456789abcdef", "fedcba9876543210", false)
	require.NoError(t, err)
	return &Handler{
		sessions: sessions,
		cfg: Config{
			AdminUsername: "admin",
			AdminPassword: "hunter2",
			ChatSecret:    "secret",
		},
		log: logrus.WithFields(logrus.Fields{"component": "api"}),
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[]}`)

	assert.True(t, verifySignature("secret", body, sign("secret", body)))
	assert.False(t, verifySignature("secret", body, sign("other", body)))
	assert.False(t, verifySignature("secret", body, ""))
	assert.False(t, verifySignature("", body, sign("", body)))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newTestHandler(t)

	body := []byte(`{"events":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/line/webhook", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", "bogus")
	rec := httptest.NewRecorder()

	h.lineWebhook(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAcceptsSignedEmptyPayload(t *testing.T) {
	h := newTestHandler(t)

	body := []byte(`{"events":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/line/webhook", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", sign("secret", body))
	rec := httptest.NewRecorder()

	h.lineWebhook(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthorizeView(t *testing.T) {
	h := newTestHandler(t)

	// Session capability: the session holds this ticket id.
	rec := httptest.NewRecorder()
	require.NoError(t, h.sessions.Write(rec, session.Data{TicketID: 7, Service: "register"}))
	req := httptest.NewRequest(http.MethodGet, "/ticket/7/view", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	assert.True(t, h.authorizeView(req, 7, "tok-abc"))
	assert.False(t, h.authorizeView(req, 8, "tok-abc"), "session grants only its own ticket")

	// Token capability: a different browser with the deep link.
	req = httptest.NewRequest(http.MethodGet, "/ticket/7/view?token=tok-abc", nil)
	assert.True(t, h.authorizeView(req, 7, "tok-abc"))

	req = httptest.NewRequest(http.MethodGet, "/ticket/7/view?token=wrong", nil)
	assert.False(t, h.authorizeView(req, 7, "tok-abc"))

	// Neither capability.
	req = httptest.NewRequest(http.MethodGet, "/ticket/7/view", nil)
	assert.False(t, h.authorizeView(req, 7, "tok-abc"))

	// An empty stored token never matches an empty query param.
	req = httptest.NewRequest(http.MethodGet, "/ticket/7/view?token=", nil)
	assert.False(t, h.authorizeView(req, 7, ""))
}

func TestAdminLoginGate(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(adminLoginRequest{Username: "admin", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.adminLogin(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, _ = json.Marshal(adminLoginRequest{Username: "admin", Password: "hunter2"})
	req = httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.adminLogin(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	authed := httptest.NewRequest(http.MethodGet, "/admin/api/summary", nil)
	for _, c := range rec.Result().Cookies() {
		authed.AddCookie(c)
	}
	assert.True(t, h.requireAdmin(authed))
	assert.False(t, h.requireAdmin(httptest.NewRequest(http.MethodGet, "/admin/api/summary", nil)))
}

func TestToPayload(t *testing.T) {
	v := ticket.View{
		Ticket: ticket.Ticket{
			ID:      5,
			Service: "register",
			Status:  ticket.StatusWaiting,
			Token:   "tok",
		},
		AheadCount:    2,
		CurrentNumber: 3,
	}

	p := toPayload(v, false)
	assert.EqualValues(t, 5, p.TicketID)
	assert.EqualValues(t, 5, p.Number)
	assert.Empty(t, p.Token)

	withToken := toPayload(v, true)
	assert.Equal(t, "tok", withToken.Token)
}

func TestWriteFrameFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, writeFrame(rec, bus.Event{TicketID: 0, Number: 4, Service: "register", Status: "update"}))

	frame := rec.Body.String()
	assert.Regexp(t, `^data: \{.*\}\n\n$`, frame)
	assert.Contains(t, frame, `"number":4`)
	assert.Contains(t, frame, `"status":"update"`)
}
