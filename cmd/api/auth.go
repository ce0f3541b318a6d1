package main

import (
	"errors"
	"path/filepath"

	"github.com/PaulBabatuyi/socialhub/internal/middleware"
	"github.com/PaulBabatuyi/socialhub/internal/session"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// protectedPages are served only to logged-in users.
var protectedPages = []string{"/messages.html", "/profile.html", "/settings.html"}

const loginPage = "/index.html?login=1"

// localUserOID holds the authenticated user's id as a bson.ObjectID.
const localUserOID = "userOID"

// authenticate resolves the session and stores the user id in locals.
// It returns session.ErrNoSession for anonymous requests.
func (s *Server) authenticate(c *fiber.Ctx) error {
	uid, err := s.sessions.Resolve(c)
	if err != nil {
		return err
	}
	oid, err := bson.ObjectIDFromHex(uid)
	if err != nil {
		return session.ErrNoSession
	}
	c.Locals(middleware.LocalUserID, uid)
	c.Locals(localUserOID, oid)
	return nil
}

// requireAuth rejects anonymous API requests with 401.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	if err := s.authenticate(c); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return errUnauthorized
		}
		return err
	}
	return c.Next()
}

// requirePage sends anonymous visitors of a protected page to the login prompt.
func (s *Server) requirePage(c *fiber.Ctx) error {
	if err := s.authenticate(c); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return c.Redirect(loginPage, fiber.StatusFound)
		}
		return err
	}
	return c.Next()
}

func (s *Server) servePage(page string) fiber.Handler {
	path := filepath.Join(s.staticDir, filepath.FromSlash(page))
	return func(c *fiber.Ctx) error {
		return c.SendFile(path)
	}
}

// currentUser returns the id set by requireAuth. Only valid behind it.
func currentUser(c *fiber.Ctx) bson.ObjectID {
	oid, _ := c.Locals(localUserOID).(bson.ObjectID)
	return oid
}
