package auth

import (
	"errors"
	"strings"

	"lager-backend/internal/apperr"
	"lager-backend/internal/config"
	"lager-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func RegisterFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"form":   "register",
			"fields": []string{"username", "email", "password1", "password2"},
		})
	}
}

// POST /register/ creates the account and logs the new user in.
func RegisterHandler(cfg *config.Config, accounts *Accounts) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		user, err := accounts.Register(c.UserContext(), RegisterInput{
			Username:  body.Username,
			Email:     body.Email,
			Password1: body.Password1,
			Password2: body.Password2,
		})
		if err != nil {
			view := fiber.Map{"form": "register", "username": body.Username, "email": body.Email}
			var fields FieldErrors
			switch {
			case errors.As(err, &fields):
				view["field_errors"] = fields
				return httpx.Rerender(c, fiber.StatusUnprocessableEntity, view, "please correct the errors below")
			case errors.Is(err, apperr.ErrUsernameTaken), errors.Is(err, apperr.ErrEmailTaken):
				return httpx.Rerender(c, fiber.StatusUnprocessableEntity, view, err.Error())
			}
			return err
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}
		setSessionCookie(c, cfg, token)

		return httpx.SeeOtherWith(c, "/lager/", "", fiber.Map{
			"token": token,
			"user":  fiber.Map{"id": user.ID, "username": user.Username, "email": user.Email},
		})
	}
}

func LoginFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"form":   "login",
			"fields": []string{"username", "password"},
			"next":   c.Query("next"),
		})
	}
}

func LoginHandler(cfg *config.Config, accounts *Accounts) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		user, err := accounts.Authenticate(c.UserContext(), body.Username, body.Password)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidCredentials) {
				return httpx.Rerender(c, fiber.StatusUnauthorized,
					fiber.Map{"form": "login", "username": body.Username}, err.Error())
			}
			return err
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}
		setSessionCookie(c, cfg, token)

		return httpx.SeeOtherWith(c, safeNext(c.Query("next")), "", fiber.Map{
			"token": token,
			"user":  fiber.Map{"id": user.ID, "username": user.Username, "email": user.Email},
		})
	}
}

func LogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clearSessionCookie(c, cfg)
		return httpx.SeeOther(c, "/login/", "logged out")
	}
}

// safeNext only follows local paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/lager/"
	}
	return next
}
