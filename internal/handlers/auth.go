package handlers

import (
	"errors"
	"strings"

	"reveal-backend/internal/models"
	"reveal-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

const localUser = "user"

// Identity resolves the calling user from a bearer token, an access_token
// query parameter or, when AllowUserIDParam is set, the user_id parameter.
type Identity struct {
	Users            *services.UserService
	Tokens           *services.TokenIssuer
	AllowUserIDParam bool
}

func bearerToken(c *fiber.Ctx) string {
	// Get token from query param `access_token` or Authorization header
	if token := c.Query("access_token"); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

func (i *Identity) resolve(c *fiber.Ctx) (*models.User, error) {
	var userID string
	if token := bearerToken(c); token != "" {
		id, err := i.Tokens.Validate(token)
		if err != nil {
			return nil, services.ErrUserNotFound
		}
		userID = id
	} else if i.AllowUserIDParam {
		userID = c.Query("user_id")
	}
	return i.Users.Get(c.Context(), userID)
}

// Require rejects the request with 401 unless a user is identified.
func (i *Identity) Require(c *fiber.Ctx) error {
	user, err := i.resolve(c)
	if err != nil {
		return httpError(err)
	}
	c.Locals(localUser, user)
	return c.Next()
}

// Optional identifies the user when it can and carries on regardless.
func (i *Identity) Optional(c *fiber.Ctx) error {
	if user, err := i.resolve(c); err == nil {
		c.Locals(localUser, user)
	} else if !errors.Is(err, services.ErrUserNotFound) {
		return err
	}
	return c.Next()
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

func authResponse(c *fiber.Ctx, tokens *services.TokenIssuer, user *models.User) error {
	token, err := tokens.Generate(user.ID, user.Email)
	if err != nil {
		return err
	}
	res := user.Public()
	res.AccessToken = token
	return c.JSON(res)
}

func RegisterHandler(users *services.UserService, tokens *services.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}
		user, err := users.Register(c.Context(), req)
		if err != nil {
			return httpError(err)
		}
		return authResponse(c, tokens, user)
	}
}

// LoginHandler reads credentials from the query string and falls back to a
// JSON or form body. Anything it cannot use ends in 401 Invalid credentials.
func LoginHandler(users *services.UserService, tokens *services.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.QueryParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}
		if req.Email == "" && len(c.Body()) > 0 {
			// An unreadable body is treated as missing credentials.
			_ = c.BodyParser(&req)
		}
		user, err := users.Login(c.Context(), req)
		if err != nil {
			return httpError(err)
		}
		return authResponse(c, tokens, user)
	}
}
