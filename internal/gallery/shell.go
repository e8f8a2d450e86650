package gallery

import (
	"context"

	"reveal-backend/internal/client"
	"reveal-backend/internal/models"
)

type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// Shell is the top-level view: an auth form until someone logs in, then the
// logged-in shell around a Gallery.
type Shell struct {
	api API

	Mode      Mode
	Email     string
	Password  string
	IsCreator bool // only sent in register mode

	Message string
	User    *models.UserPublic
}

func NewShell(api API) *Shell {
	return &Shell{api: api, Mode: ModeLogin}
}

func (s *Shell) SetMode(m Mode) {
	s.Mode = m
}

func (s *Shell) LoggedIn() bool {
	return s.User != nil
}

// Submit sends the form in the current mode and reports whether a user is now
// logged in. The outcome is always described in Message.
func (s *Shell) Submit(ctx context.Context) bool {
	s.Message = ""

	if s.Mode == ModeRegister {
		user, err := s.api.Register(ctx, s.Email, s.Password, s.IsCreator)
		if err != nil {
			s.Message = client.Message(err, "Error registering")
			return false
		}
		s.User = user
		s.Message = "Registered and logged in."
		return true
	}

	user, err := s.api.Login(ctx, s.Email, s.Password)
	if err != nil {
		s.Message = client.Message(err, "Error logging in")
		return false
	}
	s.User = user
	s.Message = "Logged in."
	return true
}

func (s *Shell) Logout() {
	s.User = nil
}
