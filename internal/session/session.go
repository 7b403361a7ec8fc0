// Package session implements the cookie-based session used by both the
// admin gate and per-browser ticket binding: a small JSON payload,
// AES-CBC encrypted and base64-encoded directly into the cookie value.
// The encrypted cookie itself is the record, so no server-side session
// store is involved.
package session

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/anyotin/queueline/internal/crypter"
	"github.com/anyotin/queueline/internal/parser"
)

const CookieName = "queueline_session"

// Data is the payload carried inside the session cookie: the admin flag
// and the caller's bound ticket, if any.
type Data struct {
	AdminLoggedIn bool   `json:"admin_logged_in,omitempty"`
	AdminName     string `json:"admin_name,omitempty"`
	TicketID      int64  `json:"ticket_id,omitempty"`
	Service       string `json:"service,omitempty"`
}

func (d Data) HasTicket() bool { return d.TicketID != 0 }

// Manager reads and writes Data in and out of the request's cookie.
type Manager struct {
	crypter crypter.Crypter
	parser  parser.Parser
	secure  bool
}

func New(aesKey, aesIV string, secureCookie bool) (*Manager, error) {
	c, err := crypter.NewAes(aesKey, aesIV)
	if err != nil {
		return nil, err
	}
	return &Manager{crypter: c, parser: &parser.JSONParser{}, secure: secureCookie}, nil
}

// Read decodes the session cookie on r, if present. A missing or
// corrupt cookie is treated as an empty session rather than an error —
// tolerant of a first visit or a cookie from a previous key rotation.
func (m *Manager) Read(r *http.Request) Data {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Data{}
	}

	raw, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Data{}
	}
	plain, err := m.crypter.DeCrypt(raw)
	if err != nil {
		return Data{}
	}
	var d Data
	if err := m.parser.Unmarshal(plain, &d); err != nil {
		return Data{}
	}
	return d
}

// Write encrypts d and sets it as the session cookie on w.
func (m *Manager) Write(w http.ResponseWriter, d Data) error {
	plain, err := m.parser.Marshal(d)
	if err != nil {
		return err
	}
	cipherText, err := m.crypter.EnCrypt(plain)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.URLEncoding.EncodeToString(cipherText),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return nil
}

// Clear removes the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
