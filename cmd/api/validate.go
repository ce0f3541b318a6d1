package main

import (
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/socialhub/internal/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// messages maps "Struct.Field.tag" to the client-facing text. A missing
// required field is reported ahead of any other rule; otherwise the first
// failing field in struct order wins.
var messages = map[string]string{
	"registerRequest.Username.required": "Username, email and password are required",
	"registerRequest.Email.required":    "Username, email and password are required",
	"registerRequest.Password.required": "Username, email and password are required",
	"registerRequest.Username.min":      "Username must be at least 3 characters",
	"registerRequest.Email.email":       "Invalid email address",
	"registerRequest.Password.min":      "Password must be at least 6 characters",
	"registerRequest.Password.pwbytes":  msgPasswordTooLong,

	"loginRequest.Identifier.required": "Identifier and password required",
	"loginRequest.Password.required":   "Identifier and password required",

	"changePasswordRequest.CurrentPassword.required": "Current and new password are required",
	"changePasswordRequest.NewPassword.required":     "Current and new password are required",
	"changePasswordRequest.NewPassword.min":          "Password must be at least 6 characters",
	"changePasswordRequest.NewPassword.pwbytes":      msgPasswordTooLong,

	"settingsRequest.Email.email": "Invalid email address",

	"sendMessageRequest.RecipientID.required": "Recipient and content are required",
}

var msgPasswordTooLong = fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// min/max count runes; bcrypt's limit is in bytes
	_ = v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})
	return v
}

// normalizer is implemented by requests that trim or lowercase their fields
// before validation.
type normalizer interface {
	normalize()
}

// bind decodes the JSON body into dst, normalizes it and runs its validate tags.
func (s *Server) bind(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return badRequest("Invalid request body")
		}
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return badRequest("Invalid request")
	}
	fe := verrs[0]
	for _, v := range verrs {
		if v.Tag() == "required" {
			fe = v
			break
		}
	}
	key := fmt.Sprintf("%s.%s", fe.StructNamespace(), fe.Tag())
	if msg, ok := messages[key]; ok {
		return badRequest(msg)
	}
	return badRequest(fmt.Sprintf("%s is invalid", fe.Field()))
}
