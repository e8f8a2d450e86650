package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsCreator    bool      `json:"is_creator"`
	TokenBalance int       `json:"token_balance"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserPublic is what register and login return.
type UserPublic struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	IsCreator    bool   `json:"is_creator"`
	TokenBalance int    `json:"token_balance"`
	AccessToken  string `json:"access_token,omitempty"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsCreator bool   `json:"is_creator"`
}

type LoginRequest struct {
	Email    string `json:"email" query:"email"`
	Password string `json:"password" query:"password"`
}

func (u User) Public() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Email:        u.Email,
		IsCreator:    u.IsCreator,
		TokenBalance: u.TokenBalance,
	}
}
