// Package storage persists users, photos, unlocks and the token ledger.
package storage

import (
	"context"
	"errors"
	"math"

	"reveal-backend/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInsufficientTokens = errors.New("not enough tokens")
	ErrBalanceLimit       = errors.New("balance limit exceeded")
)

// MaxBalance is the largest balance any backend holds; token_balance is a
// 32-bit INTEGER in postgres. AddTokens refuses credits past it.
const MaxBalance = math.MaxInt32

// UnlockResult reports the balance after an unlock attempt.
type UnlockResult struct {
	Balance         int
	AlreadyUnlocked bool
}

// Store is implemented by the memory, postgres and sqlite backends.
//
// AddTokens and Unlock are atomic: the balance change, the unlock row and the
// ledger row are written together or not at all. Unlock of a photo the user
// already owns charges nothing.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	CreatePhoto(ctx context.Context, p *models.Photo) error
	ListPhotos(ctx context.Context) ([]models.Photo, error)
	GetPhoto(ctx context.Context, id string) (*models.Photo, error)

	UnlockedPhotoIDs(ctx context.Context, userID string) (map[string]bool, error)
	IsUnlocked(ctx context.Context, userID, photoID string) (bool, error)

	AddTokens(ctx context.Context, userID string, amount int) (int, error)
	Unlock(ctx context.Context, userID, photoID string) (UnlockResult, error)
	ListTransactions(ctx context.Context, userID string) ([]models.TokenTransaction, error)

	Ping(ctx context.Context) error
	Close()
}
