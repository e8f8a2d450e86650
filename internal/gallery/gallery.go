package gallery

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"reveal-backend/internal/client"
	"reveal-backend/internal/models"
)

// DemoTokenAmount is what the "add tokens" button credits.
const DemoTokenAmount = 50

// Gallery is the logged-in view: photo list, wallet and the selected item.
// Methods are safe to call from several goroutines; each holds the view lock
// for its whole request sequence.
type Gallery struct {
	mu   sync.Mutex
	api  API
	user models.UserPublic

	Photos   []models.PhotoPublic
	Wallet   int
	Selected *models.PhotoDetail
	Message  string
	Loading  bool
}

func NewGallery(api API, user models.UserPublic) *Gallery {
	return &Gallery{api: api, user: user, Photos: []models.PhotoPublic{}}
}

func (g *Gallery) User() models.UserPublic {
	return g.user
}

func (g *Gallery) fetchPhotos(ctx context.Context) error {
	photos, err := g.api.ListPhotos(ctx, g.user.ID)
	if err != nil {
		return err
	}
	g.Photos = photos
	return nil
}

func (g *Gallery) fetchWallet(ctx context.Context) error {
	balance, err := g.api.Wallet(ctx, g.user.ID)
	if err != nil {
		return err
	}
	g.Wallet = balance
	return nil
}

func (g *Gallery) fetchPhotoDetail(ctx context.Context, photoID string) error {
	photo, err := g.api.GetPhoto(ctx, g.user.ID, photoID)
	if err != nil {
		return err
	}
	g.Selected = photo
	return nil
}

// Load fetches the photo list and the wallet balance.
func (g *Gallery) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.fetchPhotos(ctx); err != nil {
		g.Message = client.Message(err, "Error loading photos")
		return err
	}
	if err := g.fetchWallet(ctx); err != nil {
		g.Message = client.Message(err, "Error loading wallet")
		return err
	}
	return nil
}

// Select shows photoID in the detail panel.
func (g *Gallery) Select(ctx context.Context, photoID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.fetchPhotoDetail(ctx, photoID); err != nil {
		g.Message = client.Message(err, "Error loading photo")
		return err
	}
	return nil
}

// Unlock buys photoID. On success the wallet takes the returned balance and
// both the list and the detail panel are re-fetched.
func (g *Gallery) Unlock(ctx context.Context, photoID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Loading = true
	g.Message = ""
	defer func() { g.Loading = false }()

	res, err := g.api.Unlock(ctx, g.user.ID, photoID)
	if err != nil {
		g.Message = client.Message(err, "Error unlocking")
		return err
	}
	g.Message = "Unlocked!"
	g.Wallet = res.TokenBalance

	if err := g.fetchPhotos(ctx); err != nil {
		g.Message = client.Message(err, "Error loading photos")
		return err
	}
	if err := g.fetchPhotoDetail(ctx, photoID); err != nil {
		g.Message = client.Message(err, "Error loading photo")
		return err
	}
	return nil
}

// AddTokens credits DemoTokenAmount demo tokens.
func (g *Gallery) AddTokens(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Loading = true
	g.Message = ""
	defer func() { g.Loading = false }()

	res, err := g.api.AddTokens(ctx, g.user.ID, DemoTokenAmount)
	if err != nil {
		g.Message = client.Message(err, "Error adding tokens")
		return err
	}
	g.Wallet = res.TokenBalance
	g.Message = fmt.Sprintf("Added %d tokens (demo).", DemoTokenAmount)
	return nil
}

func (g *Gallery) History(ctx context.Context) ([]models.TokenTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	txs, err := g.api.Transactions(ctx, g.user.ID)
	if err != nil {
		g.Message = client.Message(err, "Error loading history")
		return nil, err
	}
	return txs, nil
}

// ApplyEvent folds a pushed wallet event into the view.
func (g *Gallery) ApplyEvent(e models.WalletEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Wallet = e.TokenBalance
	if e.Event == "unlocked" {
		for i := range g.Photos {
			if g.Photos[i].ID == e.PhotoID {
				g.Photos[i].Unlocked = true
			}
		}
	}
}

// Resolve maps a 1-based list position to a photo id. Anything else is
// returned unchanged.
func (g *Gallery) Resolve(ref string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(g.Photos) {
		return g.Photos[n-1].ID
	}
	return ref
}

// SelectedID is the id in the detail panel, or "".
func (g *Gallery) SelectedID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Selected == nil {
		return ""
	}
	return g.Selected.ID
}

// Render writes the list and the detail panel as plain text.
func (g *Gallery) Render(w io.Writer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Wallet: %d tokens  (type 'add' for %d demo tokens)\n", g.Wallet, DemoTokenAmount)
	if g.Message != "" {
		fmt.Fprintln(&b, g.Message)
	}
	b.WriteString("\n")

	if len(g.Photos) == 0 {
		b.WriteString("No items yet.\n")
	}
	for i, p := range g.Photos {
		fmt.Fprintf(&b, "%2d. %s %s\n", i+1, visibility(p.Unlocked), p.Title)
		fmt.Fprintf(&b, "    %s\n", p.PreviewURL)
		fmt.Fprintf(&b, "    %d tokens to unlock\n", p.PriceTokens)
		if p.Unlocked {
			b.WriteString("    ✅ Unlocked\n")
		}
	}

	b.WriteString("\nSelected item\n")
	b.WriteString(g.renderSelected())
	_, _ = io.WriteString(w, b.String())
}

func visibility(unlocked bool) string {
	if unlocked {
		return "[revealed]"
	}
	return "[blurred] "
}

func (g *Gallery) renderSelected() string {
	p := g.Selected
	if p == nil {
		return "  Select an item from the gallery.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n", p.Title)
	if p.Description != nil && *p.Description != "" {
		fmt.Fprintf(&b, "  %s\n", *p.Description)
	}
	fmt.Fprintf(&b, "  %s %s\n", visibility(p.Unlocked), p.ImageURL())
	switch {
	case p.Unlocked:
		b.WriteString("  You own this item.\n")
	case g.Loading:
		b.WriteString("  Unlocking...\n")
	default:
		fmt.Fprintf(&b, "  Unlock for %d tokens\n", p.PriceTokens)
	}
	return b.String()
}
