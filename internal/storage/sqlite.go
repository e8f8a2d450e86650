package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reveal-backend/internal/models"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_creator    BOOLEAN NOT NULL DEFAULT 0,
	token_balance INTEGER NOT NULL DEFAULT 0 CHECK (token_balance >= 0),
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS photos (
	id           TEXT PRIMARY KEY,
	creator_id   TEXT NOT NULL REFERENCES users(id),
	title        TEXT NOT NULL,
	description  TEXT,
	price_tokens INTEGER NOT NULL CHECK (price_tokens >= 0),
	preview_url  TEXT NOT NULL,
	original_url TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS unlocks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id),
	photo_id     TEXT NOT NULL REFERENCES photos(id),
	tokens_spent INTEGER NOT NULL,
	created_at   DATETIME NOT NULL,
	UNIQUE (user_id, photo_id)
);

CREATE TABLE IF NOT EXISTS token_transactions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	kind       TEXT NOT NULL,
	amount     INTEGER NOT NULL,
	photo_id   TEXT REFERENCES photos(id),
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_token_transactions_user ON token_transactions(user_id);
`

// SQLiteStore orders rows by rowid, which follows insertion order.
type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(ctx context.Context, conn *sql.DB) (*SQLiteStore, error) {
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{DB: conn}, nil
}

func sqliteConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, is_creator, token_balance, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.IsCreator, u.TokenBalance, u.CreatedAt)
	if sqliteConstraint(err, sqlite3.ErrConstraintUnique) {
		return ErrEmailTaken
	}
	return err
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg string) (*models.User, error) {
	var u models.User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, is_creator, token_balance, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsCreator, &u.TokenBalance, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	var description sql.NullString
	if p.Description != nil {
		description = sql.NullString{String: *p.Description, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO photos (id, creator_id, title, description, price_tokens, preview_url, original_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CreatorID, p.Title, description, p.PriceTokens, p.PreviewURL, p.OriginalURL, p.CreatedAt)
	if sqliteConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePhoto(row rowScanner) (models.Photo, error) {
	var p models.Photo
	var description sql.NullString
	err := row.Scan(&p.ID, &p.CreatorID, &p.Title, &description, &p.PriceTokens, &p.PreviewURL, &p.OriginalURL, &p.CreatedAt)
	if description.Valid {
		p.Description = &description.String
	}
	return p, err
}

func (s *SQLiteStore) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+photoColumns+` FROM photos ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanSQLitePhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (s *SQLiteStore) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	p, err := scanSQLitePhoto(s.DB.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) UnlockedPhotoIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT photo_id FROM unlocks WHERE user_id = ?`, userID)
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

func (s *SQLiteStore) IsUnlocked(ctx context.Context, userID, photoID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM unlocks WHERE user_id = ? AND photo_id = ?)`, userID, photoID).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) AddTokens(ctx context.Context, userID string, amount int) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx, `SELECT token_balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if amount > MaxBalance-balance {
		return balance, ErrBalanceLimit
	}
	balance += amount

	if _, err := tx.ExecContext(ctx, `UPDATE users SET token_balance = ? WHERE id = ?`, balance, userID); err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO token_transactions (id, user_id, kind, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), userID, string(models.TransactionPurchase), amount, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *SQLiteStore) Unlock(ctx context.Context, userID, photoID string) (UnlockResult, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return UnlockResult{}, err
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx, `SELECT token_balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return UnlockResult{}, ErrNotFound
	}
	if err != nil {
		return UnlockResult{}, err
	}

	var price int
	err = tx.QueryRowContext(ctx, `SELECT price_tokens FROM photos WHERE id = ?`, photoID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return UnlockResult{}, ErrNotFound
	}
	if err != nil {
		return UnlockResult{}, err
	}

	var owned bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM unlocks WHERE user_id = ? AND photo_id = ?)`, userID, photoID).Scan(&owned)
	if err != nil {
		return UnlockResult{}, err
	}
	if owned {
		return UnlockResult{Balance: balance, AlreadyUnlocked: true}, nil
	}
	if balance < price {
		return UnlockResult{Balance: balance}, ErrInsufficientTokens
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE users SET token_balance = token_balance - ? WHERE id = ?`, price, userID); err != nil {
		return UnlockResult{}, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO unlocks (id, user_id, photo_id, tokens_spent, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), userID, photoID, price, now)
	if err != nil {
		return UnlockResult{}, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO token_transactions (id, user_id, kind, amount, photo_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), userID, string(models.TransactionUnlock), -price, photoID, now)
	if err != nil {
		return UnlockResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return UnlockResult{}, err
	}
	return UnlockResult{Balance: balance - price}, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string) ([]models.TokenTransaction, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, kind, amount, photo_id, created_at FROM token_transactions WHERE user_id = ? ORDER BY rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.TokenTransaction
	for rows.Next() {
		var t models.TokenTransaction
		var kind string
		var photoID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.Amount, &photoID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = models.TransactionKind(kind)
		t.PhotoID = photoID.String
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	s.DB.Close()
}
