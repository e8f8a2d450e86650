// Package gallery holds the client-side view state of the pay-per-reveal
// demo: the authentication screen and the gallery with its detail panel.
// Business rules stay on the server; these types only sequence requests and
// turn responses into what the user sees.
package gallery

import (
	"context"

	"reveal-backend/internal/client"
	"reveal-backend/internal/models"
)

// API is the subset of the backend the views talk to. *client.Client
// implements it.
type API interface {
	Register(ctx context.Context, email, password string, isCreator bool) (*models.UserPublic, error)
	Login(ctx context.Context, email, password string) (*models.UserPublic, error)
	ListPhotos(ctx context.Context, userID string) ([]models.PhotoPublic, error)
	GetPhoto(ctx context.Context, userID, photoID string) (*models.PhotoDetail, error)
	Unlock(ctx context.Context, userID, photoID string) (*models.UnlockResponse, error)
	Wallet(ctx context.Context, userID string) (int, error)
	AddTokens(ctx context.Context, userID string, amount int) (*models.WalletResponse, error)
	Transactions(ctx context.Context, userID string) ([]models.TokenTransaction, error)
}

var _ API = (*client.Client)(nil)
