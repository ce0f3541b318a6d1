package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrNoSession means the request carries no usable session: no cookie, a
// cookie that fails verification, or one whose server-side record is gone.
var ErrNoSession = errors.New("no session")

// Options configures the cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager issues, resolves and ends sessions for fiber requests.
type Manager struct {
	store  Store
	signer *auth.CookieSigner
	opts   Options
	now    func() time.Time
}

// NewManager returns a Manager. Zero options fall back to a 7 day
// socialhub.sid cookie.
func NewManager(store Store, signer *auth.CookieSigner, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "socialhub.sid"
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	return &Manager{store: store, signer: signer, opts: opts, now: time.Now}
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.opts.CookieName }

// Start binds userID to a brand new session and sets its cookie. Any session
// the request already carried is destroyed first, so a login always gets a
// fresh id.
func (m *Manager) Start(c *fiber.Ctx, userID string) error {
	ctx := c.UserContext()

	if sid, err := m.sessionID(c); err == nil {
		if err := m.store.Destroy(ctx, sid); err != nil {
			return err
		}
	}

	now := m.now().UTC()
	d := Data{UserID: userID, CreatedAt: now, ExpiresAt: now.Add(m.opts.TTL)}
	sid := uuid.NewString()

	if err := m.store.Save(ctx, sid, d); err != nil {
		return err
	}

	value, err := m.signer.Sign(sid, d.ExpiresAt)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  d.ExpiresAt,
		HTTPOnly: true,
		Secure:   m.opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Resolve returns the user id bound to the request's session. It returns
// ErrNoSession for anything a client can cause and a wrapped store error
// otherwise.
func (m *Manager) Resolve(c *fiber.Ctx) (string, error) {
	sid, err := m.sessionID(c)
	if err != nil {
		return "", err
	}

	d, err := m.store.Get(c.UserContext(), sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("resolve session: %w", err)
	}
	if d.Expired(m.now()) || d.UserID == "" {
		return "", ErrNoSession
	}
	return d.UserID, nil
}

// End destroys the request's session, if any, and clears the cookie.
func (m *Manager) End(c *fiber.Ctx) error {
	if sid, err := m.sessionID(c); err == nil {
		if err := m.store.Destroy(c.UserContext(), sid); err != nil {
			return err
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   m.opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (m *Manager) sessionID(c *fiber.Ctx) (string, error) {
	value := c.Cookies(m.opts.CookieName)
	if value == "" {
		return "", ErrNoSession
	}
	sid, err := m.signer.Verify(value)
	if err != nil {
		return "", ErrNoSession
	}
	return sid, nil
}
