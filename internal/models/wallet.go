package models

import "time"

type TransactionKind string

const (
	TransactionPurchase TransactionKind = "purchase"
	TransactionUnlock   TransactionKind = "unlock"
)

// TokenTransaction is one ledger row. Amount is positive for purchases and
// negative for unlocks.
type TokenTransaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Kind      TransactionKind `json:"kind"`
	Amount    int             `json:"amount"`
	PhotoID   string          `json:"photo_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Unlock records that a user owns a photo.
type Unlock struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PhotoID     string    `json:"photo_id"`
	TokensSpent int       `json:"tokens_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

type UnlockRequest struct {
	PhotoID string `json:"photo_id"`
}

type UnlockResponse struct {
	Detail       string `json:"detail"`
	TokenBalance int    `json:"token_balance"`
}

type TokenPurchaseRequest struct {
	Amount int `json:"amount"`
}

type WalletResponse struct {
	TokenBalance int `json:"token_balance"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WalletEvent is pushed over /ws whenever the balance changes.
type WalletEvent struct {
	Event        string `json:"event"` // "wallet", "unlocked"
	TokenBalance int    `json:"token_balance"`
	PhotoID      string `json:"photo_id,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}
