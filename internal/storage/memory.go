package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"reveal-backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. Data is lost on restart.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	photos       map[string]*models.Photo
	photoOrder   []string
	unlocks      map[string]models.Unlock // key: userID + "/" + photoID
	transactions []models.TokenTransaction
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*models.User),
		photos:  make(map[string]*models.Photo),
		unlocks: make(map[string]models.Unlock),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func unlockKey(userID, photoID string) string {
	return userID + "/" + photoID
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) CreatePhoto(_ context.Context, p *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.CreatorID]; !ok {
		return ErrNotFound
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	cp := *p
	s.photos[p.ID] = &cp
	s.photoOrder = append(s.photoOrder, p.ID)
	return nil
}

func (s *MemoryStore) ListPhotos(_ context.Context) ([]models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	photos := make([]models.Photo, 0, len(s.photoOrder))
	for _, id := range s.photoOrder {
		photos = append(photos, *s.photos[id])
	}
	return photos, nil
}

func (s *MemoryStore) GetPhoto(_ context.Context, id string) (*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.photos[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) UnlockedPhotoIDs(_ context.Context, userID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]bool)
	for _, u := range s.unlocks {
		if u.UserID == userID {
			ids[u.PhotoID] = true
		}
	}
	return ids, nil
}

func (s *MemoryStore) IsUnlocked(_ context.Context, userID, photoID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.unlocks[unlockKey(userID, photoID)]
	return ok, nil
}

func (s *MemoryStore) AddTokens(_ context.Context, userID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if amount > MaxBalance-u.TokenBalance {
		return u.TokenBalance, ErrBalanceLimit
	}
	u.TokenBalance += amount
	s.transactions = append(s.transactions, models.TokenTransaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      models.TransactionPurchase,
		Amount:    amount,
		CreatedAt: s.now(),
	})
	return u.TokenBalance, nil
}

func (s *MemoryStore) Unlock(_ context.Context, userID, photoID string) (UnlockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return UnlockResult{}, ErrNotFound
	}
	p, ok := s.photos[photoID]
	if !ok {
		return UnlockResult{}, ErrNotFound
	}
	key := unlockKey(userID, photoID)
	if _, owned := s.unlocks[key]; owned {
		return UnlockResult{Balance: u.TokenBalance, AlreadyUnlocked: true}, nil
	}
	if u.TokenBalance < p.PriceTokens {
		return UnlockResult{Balance: u.TokenBalance}, ErrInsufficientTokens
	}

	now := s.now()
	u.TokenBalance -= p.PriceTokens
	s.unlocks[key] = models.Unlock{
		ID:          uuid.New().String(),
		UserID:      userID,
		PhotoID:     photoID,
		TokensSpent: p.PriceTokens,
		CreatedAt:   now,
	}
	s.transactions = append(s.transactions, models.TokenTransaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      models.TransactionUnlock,
		Amount:    -p.PriceTokens,
		PhotoID:   photoID,
		CreatedAt: now,
	})
	return UnlockResult{Balance: u.TokenBalance}, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string) ([]models.TokenTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.TokenTransaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}
