// Package session keeps per-browser state behind an opaque cookie.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session id.
const CookieName = "session_token"

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 7 * 24 * time.Hour

// Data is the state kept for one browser.
type Data struct {
	UserID  int64    `json:"user_id,omitempty"`
	Lang    string   `json:"lang,omitempty"`
	Theme   string   `json:"theme,omitempty"`
	Flashes []string `json:"flashes,omitempty"`
}

// Session is a Data record addressed by ID.
type Session struct {
	ID   string
	Data Data
}

// AddFlash queues a notice for the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.Data.Flashes = append(s.Data.Flashes, msg)
}

// PopFlashes returns and clears the queued notices.
func (s *Session) PopFlashes() []string {
	f := s.Data.Flashes
	s.Data.Flashes = nil
	return f
}

// Store persists session data by id.
type Store interface {
	Get(ctx context.Context, id string) (Data, bool, error)
	Set(ctx context.Context, id string, data Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Manager ties a Store to the session cookie.
type Manager struct {
	Store  Store
	TTL    time.Duration
	Secure bool
}

func NewManager(store Store, secure bool) *Manager {
	return &Manager{Store: store, TTL: DefaultTTL, Secure: secure}
}

// Load returns the session named by the request cookie, or a fresh one when
// there is no cookie or the store no longer knows it.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return &Session{ID: uuid.NewString()}, nil
	}
	data, ok, err := m.Store.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Session{ID: uuid.NewString()}, nil
	}
	return &Session{ID: cookie.Value, Data: data}, nil
}

// Save stores s and (re)sets the cookie.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.Store.Set(ctx, s.ID, s.Data, m.TTL); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  time.Now().Add(m.TTL),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Rotate moves s to a new id. Call it when the user logs in.
func (m *Manager) Rotate(ctx context.Context, s *Session) error {
	if err := m.Store.Delete(ctx, s.ID); err != nil {
		return err
	}
	s.ID = uuid.NewString()
	return nil
}

// Destroy forgets the stored record of s and turns s into a fresh
// anonymous session that keeps only the UI preferences.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	err := m.Store.Delete(ctx, s.ID)
	s.ID = uuid.NewString()
	s.Data = Data{Lang: s.Data.Lang, Theme: s.Data.Theme}
	return err
}
