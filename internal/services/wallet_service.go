package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reveal-backend/internal/models"
	"reveal-backend/internal/storage"
)

// Notifier receives every balance change. The websocket hub implements it.
type Notifier interface {
	NotifyUser(userID string, event models.WalletEvent)
}

type WalletService struct {
	store    storage.Store
	notifier Notifier
}

func NewWalletService(store storage.Store, notifier Notifier) *WalletService {
	return &WalletService{store: store, notifier: notifier}
}

func (s *WalletService) notify(userID, event string, balance int, photoID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyUser(userID, models.WalletEvent{
		Event:        event,
		TokenBalance: balance,
		PhotoID:      photoID,
		Timestamp:    time.Now().UnixMilli(),
	})
}

func (s *WalletService) Balance(ctx context.Context, userID string) (int, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	return user.TokenBalance, nil
}

// Add credits demo tokens. The resulting balance may not exceed
// storage.MaxBalance.
func (s *WalletService) Add(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrAmountNotPositive
	}
	if amount > storage.MaxBalance {
		return 0, ErrAmountTooLarge
	}
	balance, err := s.store.AddTokens(ctx, userID, amount)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if errors.Is(err, storage.ErrBalanceLimit) {
		return 0, ErrAmountTooLarge
	}
	if err != nil {
		return 0, fmt.Errorf("add tokens: %w", err)
	}
	s.notify(userID, "wallet", balance, "")
	return balance, nil
}

// Unlock spends the photo's price once; later calls report "Already unlocked"
// and charge nothing.
func (s *WalletService) Unlock(ctx context.Context, userID, photoID string) (*models.UnlockResponse, error) {
	res, err := s.store.Unlock(ctx, userID, photoID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrPhotoNotFound
	case errors.Is(err, storage.ErrInsufficientTokens):
		return nil, ErrNotEnoughTokens
	case err != nil:
		return nil, fmt.Errorf("unlock: %w", err)
	}

	if res.AlreadyUnlocked {
		return &models.UnlockResponse{Detail: "Already unlocked", TokenBalance: res.Balance}, nil
	}
	s.notify(userID, "unlocked", res.Balance, photoID)
	return &models.UnlockResponse{Detail: "Unlocked", TokenBalance: res.Balance}, nil
}

func (s *WalletService) Transactions(ctx context.Context, userID string) ([]models.TokenTransaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []models.TokenTransaction{}
	}
	return txs, nil
}
