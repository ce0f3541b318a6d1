package main

import (
	"errors"
	"strings"

	"github.com/PaulBabatuyi/socialhub/internal/auth"
	"github.com/PaulBabatuyi/socialhub/internal/data"
	"github.com/PaulBabatuyi/socialhub/internal/metrics"
	"github.com/PaulBabatuyi/socialhub/internal/normalize"
	"github.com/PaulBabatuyi/socialhub/internal/session"

	"github.com/gofiber/fiber/v2"
)

const errIdentifierTaken = "Username or email already in use"

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,pwbytes"`
	DisplayName string `json:"displayName"`
}

func (r *registerRequest) normalize() {
	r.Username = normalize.Username(r.Username)
	r.Email = normalize.Email(r.Email)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Identifier = normalize.Identifier(r.Identifier)
}

// handleRegister creates the account and logs the new user in.
func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()

	taken, err := s.users.IdentifierTaken(ctx, req.Username, req.Email)
	if err != nil {
		return err
	}
	if taken {
		metrics.AuthAttempts.WithLabelValues("register", "conflict").Inc()
		return conflict(errIdentifierTaken)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	// the unique indexes still catch a registration racing this one
	user, err := s.users.CreateUser(ctx, data.NewUser{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hashed,
	})
	if errors.Is(err, data.ErrConflict) {
		metrics.AuthAttempts.WithLabelValues("register", "conflict").Inc()
		return conflict(errIdentifierTaken)
	}
	if err != nil {
		return err
	}

	if err := s.sessions.Start(c, user.ID.Hex()); err != nil {
		return err
	}
	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	s.log.WithField("user_id", user.ID.Hex()).Info("user registered")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user.Public()})
}

// handleLogin answers every failure with the same 401 so callers cannot
// discover which identifiers exist.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	user, err := s.users.FindByIdentifier(c.UserContext(), req.Identifier)
	if errors.Is(err, data.ErrNotFound) {
		metrics.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		return errInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		return errInvalidCredentials
	}

	if err := s.sessions.Start(c, user.ID.Hex()); err != nil {
		return err
	}
	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()

	return c.JSON(fiber.Map{"user": user.Public()})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	if err := s.sessions.End(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// handleMe never fails for anonymous callers; it reports user: null.
func (s *Server) handleMe(c *fiber.Ctx) error {
	if err := s.authenticate(c); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return c.JSON(fiber.Map{"user": nil})
		}
		return err
	}

	user, err := s.users.GetUserByID(c.UserContext(), currentUser(c))
	if errors.Is(err, data.ErrNotFound) {
		return c.JSON(fiber.Map{"user": nil})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user.Public()})
}

type profileRequest struct {
	DisplayName    *string `json:"displayName"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profilePicture"`
}

func (r *profileRequest) normalize() {
	trimPtr(r.DisplayName)
	trimPtr(r.Bio)
	trimPtr(r.ProfilePicture)
}

type settingsRequest struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

func (r *settingsRequest) normalize() {
	trimPtr(r.DisplayName)
	trimPtr(r.Bio)
	if r.Email != nil {
		if e := normalize.Email(*r.Email); e != "" {
			r.Email = &e
		} else {
			// a blank email leaves the stored one alone
			r.Email = nil
		}
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,pwbytes"`
}

func trimPtr(p *string) {
	if p != nil {
		*p = strings.TrimSpace(*p)
	}
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	return s.applyProfileUpdate(c, data.ProfileUpdate{
		DisplayName:    req.DisplayName,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
}

func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	return s.applyProfileUpdate(c, data.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Email:       req.Email,
	})
}

func (s *Server) applyProfileUpdate(c *fiber.Ctx, update data.ProfileUpdate) error {
	ctx := c.UserContext()
	uid := currentUser(c)

	var (
		user *data.User
		err  error
	)
	if update.Empty() {
		user, err = s.users.GetUserByID(ctx, uid)
	} else {
		user, err = s.users.UpdateProfile(ctx, uid, update)
	}
	switch {
	case errors.Is(err, data.ErrNotFound):
		return notFound("User not found")
	case errors.Is(err, data.ErrConflict):
		return conflict("Email already in use")
	case err != nil:
		return err
	}
	return c.JSON(fiber.Map{"user": user.Public()})
}

func (s *Server) handleChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	uid := currentUser(c)

	user, err := s.users.GetCredentials(ctx, uid)
	if errors.Is(err, data.ErrNotFound) {
		return notFound("User not found")
	}
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return unauthorized("Current password is incorrect")
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if _, err := s.users.UpdateProfile(ctx, uid, data.ProfileUpdate{PasswordHash: &hashed}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) handleGetUser(c *fiber.Ctx) error {
	id, err := data.ParseID(c.Params("id"))
	if err != nil {
		return badRequest("Invalid user id")
	}
	user, err := s.users.GetUserByID(c.UserContext(), id)
	if errors.Is(err, data.ErrNotFound) {
		return notFound("User not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user.Public()})
}
