package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey = "0123456789abcdef"
	testIV  = "fedcba9876543210"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(testKey, testIV, false)
	require.NoError(t, err)
	return m
}

func requestWithCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestReadMissingCookie(t *testing.T) {
	m := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, Data{}, m.Read(req))
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := newManager(t)

	rec := httptest.NewRecorder()
	in := Data{TicketID: 42, Service: "register"}
	require.NoError(t, m.Write(rec, in))

	got := m.Read(requestWithCookies(t, rec))
	assert.Equal(t, in, got)
	assert.True(t, got.HasTicket())
}

func TestAdminFlagRoundTrip(t *testing.T) {
	m := newManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Write(rec, Data{AdminLoggedIn: true, AdminName: "operator"}))

	got := m.Read(requestWithCookies(t, rec))
	assert.True(t, got.AdminLoggedIn)
	assert.Equal(t, "operator", got.AdminName)
	assert.False(t, got.HasTicket())
}

func TestCorruptCookieReadsAsEmpty(t *testing.T) {
	m := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-base64!!"})
	assert.Equal(t, Data{}, m.Read(req))

	// Valid base64 that isn't a valid ciphertext.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "YWJjZGVm"})
	assert.Equal(t, Data{}, m.Read(req))
}

func TestCookieFromDifferentKeyReadsAsEmpty(t *testing.T) {
	m1 := newManager(t)
	m2, err := New("fedcba9876543210", testIV, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, m1.Write(rec, Data{TicketID: 7}))

	got := m2.Read(requestWithCookies(t, rec))
	assert.Equal(t, Data{}, got)
}

func TestClearExpiresCookie(t *testing.T) {
	m := newManager(t)

	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}
