package storage

import (
	"context"
	"errors"
	"fmt"

	"reveal-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_creator    BOOLEAN NOT NULL DEFAULT FALSE,
	token_balance INTEGER NOT NULL DEFAULT 0 CHECK (token_balance >= 0),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS photos (
	id           TEXT PRIMARY KEY,
	creator_id   TEXT NOT NULL REFERENCES users(id),
	title        TEXT NOT NULL,
	description  TEXT,
	price_tokens INTEGER NOT NULL CHECK (price_tokens >= 0),
	preview_url  TEXT NOT NULL,
	original_url TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS unlocks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id),
	photo_id     TEXT NOT NULL REFERENCES photos(id),
	tokens_spent INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, photo_id)
);

CREATE TABLE IF NOT EXISTS token_transactions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	kind       TEXT NOT NULL,
	amount     INTEGER NOT NULL,
	photo_id   TEXT REFERENCES photos(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_token_transactions_user ON token_transactions(user_id, created_at DESC);
`

type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore creates the schema if needed.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{Pool: pool}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	query := `INSERT INTO users (id, email, password_hash, is_creator, token_balance)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	err := s.Pool.QueryRow(ctx, query, u.ID, u.Email, u.PasswordHash, u.IsCreator, u.TokenBalance).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg string) (*models.User, error) {
	query := `SELECT id, email, password_hash, is_creator, token_balance, created_at FROM users WHERE ` + where
	var u models.User
	err := s.Pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsCreator, &u.TokenBalance, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = $1", email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *PostgresStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `INSERT INTO photos (id, creator_id, title, description, price_tokens, preview_url, original_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`
	err := s.Pool.QueryRow(ctx, query, p.ID, p.CreatorID, p.Title, p.Description, p.PriceTokens, p.PreviewURL, p.OriginalURL).Scan(&p.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	return err
}

const photoColumns = `id, creator_id, title, description, price_tokens, preview_url, original_url, created_at`

func (s *PostgresStore) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+photoColumns+` FROM photos ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.CreatorID, &p.Title, &p.Description, &p.PriceTokens, &p.PreviewURL, &p.OriginalURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (s *PostgresStore) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	var p models.Photo
	err := s.Pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id).
		Scan(&p.ID, &p.CreatorID, &p.Title, &p.Description, &p.PriceTokens, &p.PreviewURL, &p.OriginalURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) UnlockedPhotoIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.Pool.Query(ctx, `SELECT photo_id FROM unlocks WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (s *PostgresStore) IsUnlocked(ctx context.Context, userID, photoID string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM unlocks WHERE user_id = $1 AND photo_id = $2)`, userID, photoID).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) AddTokens(ctx context.Context, userID string, amount int) (int, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var balance int
	err = tx.QueryRow(ctx, `SELECT token_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if amount > MaxBalance-balance {
		return balance, ErrBalanceLimit
	}
	balance += amount

	if _, err := tx.Exec(ctx, `UPDATE users SET token_balance = $1 WHERE id = $2`, balance, userID); err != nil {
		return 0, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO token_transactions (id, user_id, kind, amount) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), userID, string(models.TransactionPurchase), amount)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *PostgresStore) Unlock(ctx context.Context, userID, photoID string) (UnlockResult, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return UnlockResult{}, err
	}
	defer tx.Rollback(ctx)

	// Row lock on the user serializes concurrent unlocks from one wallet.
	var balance int
	err = tx.QueryRow(ctx, `SELECT token_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return UnlockResult{}, ErrNotFound
	}
	if err != nil {
		return UnlockResult{}, err
	}

	var price int
	err = tx.QueryRow(ctx, `SELECT price_tokens FROM photos WHERE id = $1`, photoID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return UnlockResult{}, ErrNotFound
	}
	if err != nil {
		return UnlockResult{}, err
	}

	var owned bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM unlocks WHERE user_id = $1 AND photo_id = $2)`, userID, photoID).Scan(&owned)
	if err != nil {
		return UnlockResult{}, err
	}
	if owned {
		return UnlockResult{Balance: balance, AlreadyUnlocked: true}, nil
	}
	if balance < price {
		return UnlockResult{Balance: balance}, ErrInsufficientTokens
	}

	err = tx.QueryRow(ctx, `UPDATE users SET token_balance = token_balance - $1 WHERE id = $2 RETURNING token_balance`, price, userID).Scan(&balance)
	if err != nil {
		return UnlockResult{}, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO unlocks (id, user_id, photo_id, tokens_spent) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), userID, photoID, price)
	if err != nil {
		return UnlockResult{}, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO token_transactions (id, user_id, kind, amount, photo_id) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), userID, string(models.TransactionUnlock), -price, photoID)
	if err != nil {
		return UnlockResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return UnlockResult{}, err
	}
	return UnlockResult{Balance: balance}, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string) ([]models.TokenTransaction, error) {
	query := `SELECT id, user_id, kind, amount, photo_id, created_at FROM token_transactions
		WHERE user_id = $1 ORDER BY created_at DESC, id`
	rows, err := s.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.TokenTransaction
	for rows.Next() {
		var t models.TokenTransaction
		var kind string
		var photoID *string
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.Amount, &photoID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = models.TransactionKind(kind)
		if photoID != nil {
			t.PhotoID = *photoID
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.Pool.Close()
}
