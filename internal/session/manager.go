// Package session keeps the API token and cached profile of logged-in users
// behind a cookie. Sessions are written once per login, read on every request
// and cleared wholesale on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/simp-lee/escola/internal/domain"
)

// ErrNoSession is returned by Get when the request carries no usable session.
var ErrNoSession = domain.NewAppError(domain.CodeUnauthorized, "sessão expirada, entre novamente", nil)

const defaultCookieName = "escola_session"

// Options configures a Manager.
type Options struct {
	CookieName string
	// Secure marks the cookie HTTPS-only.
	Secure bool
	// TTL caps the session lifetime below the token expiry. Zero means the
	// token expiry alone decides.
	TTL time.Duration
}

// Manager implements get/set/clear of the session bound to a request.
type Manager struct {
	store  domain.SessionStore
	opts   Options
	now    func() time.Time
	nextID func() string
}

// NewManager creates a Manager over store.
func NewManager(store domain.SessionStore, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = defaultCookieName
	}
	return &Manager{
		store:  store,
		opts:   opts,
		now:    time.Now,
		nextID: uuid.NewString,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() domain.SessionStore {
	return m.store
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.opts.CookieName
}

// Get returns the session of r. A missing, unknown, expired or token-expired
// session yields ErrNoSession; stale entries are removed from the store.
func (m *Manager) Get(r *http.Request) (*domain.Session, error) {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	ctx := r.Context()
	s, err := m.store.Load(ctx, cookie.Value)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	now := m.now()
	if s.Expired(now) || !TokenValid(s.Token, now) {
		_ = m.store.Delete(ctx, s.ID)
		return nil, ErrNoSession
	}
	return s, nil
}

// Set starts a session for a successful login and writes the cookie. The
// token must carry an exp claim in the future.
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, res *domain.LoginResult) (*domain.Session, error) {
	exp, err := TokenExpiry(res.Token)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "token de acesso inválido", err)
	}
	now := m.now()
	if !now.Before(exp) {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "token de acesso expirado", nil)
	}
	if m.opts.TTL > 0 {
		exp = minTime(exp, now.Add(m.opts.TTL))
	}

	// A login replaces whatever session the browser held before.
	if old, err := r.Cookie(m.opts.CookieName); err == nil && old.Value != "" {
		_ = m.store.Delete(r.Context(), old.Value)
	}

	s := &domain.Session{
		ID:        m.nextID(),
		Token:     res.Token,
		Profile:   res.Profile,
		CreatedAt: now,
		ExpiresAt: exp,
	}
	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(exp.Sub(now).Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Clear deletes the session of r and expires the cookie. It returns the id of
// the cleared session, or "" when there was none.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) (string, error) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return "", nil
	}
	if err := m.store.Delete(r.Context(), cookie.Value); err != nil && !domain.IsNotFound(err) {
		return cookie.Value, err
	}
	return cookie.Value, nil
}

// Sweeper is implemented by stores that need expired entries removed
// periodically.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Pinger is implemented by stores backed by an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sweep removes expired sessions when the store supports it.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	sw, ok := m.store.(Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.DeleteExpired(ctx, m.now())
}

// Ping checks the store's backing service, if any.
func (m *Manager) Ping(ctx context.Context) error {
	p, ok := m.store.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// IsNoSession reports whether err means the caller must log in again.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession) || domain.IsUnauthorized(err)
}
