package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterStore_AllowAndCleanup(t *testing.T) {
	// allow 5 events immediately then the 6th should be rejected
	s := NewLimiterStore(5, 5, time.Hour)
	defer s.Stop()

	key := "test@example.com"
	for i := 0; i < 5; i++ {
		if !s.Allow(key) {
			t.Fatalf("expected allow at iteration %d", i)
		}
	}

	if s.Allow(key) {
		t.Fatalf("expected limiter to block after burst consumed")
	}
	if !s.Allow("someone-else") {
		t.Fatalf("keys must not share a budget")
	}

	s.evictIdle(time.Now().Add(time.Minute))
	if n := s.Len(); n != 0 {
		t.Fatalf("expected idle entries evicted, %d left", n)
	}

	// a fresh limiter after eviction starts with a full burst
	if !s.Allow(key) {
		t.Fatalf("expected allow after eviction")
	}
	s.Stop()
}

func TestRateLimit_KeysByIdentifier(t *testing.T) {
	s := NewLimiterStore(2, 2, time.Hour)
	defer s.Stop()

	app := fiber.New()
	app.Post("/login", RateLimit(s, CredentialKey), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNoContent, post(`{"identifier":"Alice"}`))
	assert.Equal(t, http.StatusNoContent, post(`{"identifier":"alice "}`))
	// same account, different spelling, shares the budget
	assert.Equal(t, http.StatusTooManyRequests, post(`{"identifier":"ALICE"}`))

	assert.Equal(t, http.StatusNoContent, post(`{"username":"bob"}`))
	assert.Equal(t, http.StatusNoContent, post(`not json`))
}

func TestCredentialKey(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		return c.SendString(CredentialKey(c))
	})

	cases := []struct {
		body string
		want string
	}{
		{`{"identifier":" Bob@Example.com "}`, "id:bob@example.com"},
		{`{"username":"Carol"}`, "id:carol"},
		{`{"identifier":"","username":""}`, "ip:"},
		{``, "ip:"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		resp, err := app.Test(req)
		require.NoError(t, err)
		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(got), tc.want), "body %q gave key %q", tc.body, got)
	}
}
