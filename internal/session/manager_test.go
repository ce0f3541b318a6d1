package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, m *Manager) *fiber.App {
	t.Helper()
	app := fiber.New()

	app.Post("/login/:user", func(c *fiber.Ctx) error {
		if err := m.Start(c, c.Params("user")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		uid, err := m.Resolve(c)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(uid)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		if err := m.End(c); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func sessionCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("response did not set %s", name)
	return nil
}

func do(t *testing.T, app *fiber.App, method, path string, ck *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if ck != nil {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestManager_Lifecycle(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb)
	m := NewManager(store, auth.NewCookieSigner("test-secret"), Options{TTL: time.Hour})
	app := newTestApp(t, m)

	resp := do(t, app, http.MethodPost, "/login/user-1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	ck := sessionCookie(t, resp, "socialhub.sid")
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	setCookie := strings.ToLower(resp.Header.Get("Set-Cookie"))
	assert.Contains(t, setCookie, "expires=")

	resp = do(t, app, http.MethodGet, "/me", ck)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/logout", ck)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	cleared := sessionCookie(t, resp, "socialhub.sid")
	assert.Empty(t, cleared.Value)

	// the old cookie value no longer resolves once the record is gone
	resp = do(t, app, http.MethodGet, "/me", ck)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManager_LoginRegeneratesSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := NewManager(NewRedisStore(rdb), auth.NewCookieSigner("test-secret"), Options{})
	app := newTestApp(t, m)

	first := sessionCookie(t, do(t, app, http.MethodPost, "/login/user-1", nil), m.CookieName())
	second := sessionCookie(t, do(t, app, http.MethodPost, "/login/user-2", first), m.CookieName())

	assert.NotEqual(t, first.Value, second.Value)
	assert.Len(t, mr.Keys(), 1, "previous session should be destroyed")

	resp := do(t, app, http.MethodGet, "/me", first)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManager_RejectsBadCookies(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := NewManager(NewRedisStore(rdb), auth.NewCookieSigner("test-secret"), Options{TTL: time.Hour})
	app := newTestApp(t, m)

	resp := do(t, app, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged := &http.Cookie{Name: m.CookieName(), Value: "forged"}
	resp = do(t, app, http.MethodGet, "/me", forged)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// signed by a different secret
	other := NewManager(NewRedisStore(rdb), auth.NewCookieSigner("other-secret"), Options{TTL: time.Hour})
	foreign := sessionCookie(t, do(t, newTestApp(t, other), http.MethodPost, "/login/user-1", nil), m.CookieName())
	resp = do(t, app, http.MethodGet, "/me", foreign)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// valid signature but the record expired in the store
	ck := sessionCookie(t, do(t, app, http.MethodPost, "/login/user-1", nil), m.CookieName())
	mr.FastForward(2 * time.Hour)
	resp = do(t, app, http.MethodGet, "/me", ck)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManager_AbsoluteExpiry(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := NewManager(NewRedisStore(rdb), auth.NewCookieSigner("test-secret"), Options{TTL: time.Hour})
	app := newTestApp(t, m)

	ck := sessionCookie(t, do(t, app, http.MethodPost, "/login/user-1", nil), m.CookieName())
	assert.WithinDuration(t, time.Now().Add(time.Hour), ck.Expires, 5*time.Second)

	// resolving does not slide the expiry
	m.now = func() time.Time { return time.Now().Add(61 * time.Minute) }
	resp := do(t, app, http.MethodGet, "/me", ck)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
