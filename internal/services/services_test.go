package services_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reveal-backend/internal/blob"
	"reveal-backend/internal/models"
	"reveal-backend/internal/services"
	"reveal-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]models.WalletEvent
}

func (n *recordingNotifier) NotifyUser(userID string, event models.WalletEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = map[string][]models.WalletEvent{}
	}
	n.events[userID] = append(n.events[userID], event)
}

type fixture struct {
	store    *storage.MemoryStore
	users    *services.UserService
	photos   *services.PhotoService
	wallet   *services.WalletService
	notifier *recordingNotifier
	uploads  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	users := services.NewUserService(store)
	users.Cost = bcrypt.MinCost
	notifier := &recordingNotifier{}
	uploads := t.TempDir()
	return &fixture{
		store:    store,
		users:    users,
		photos:   services.NewPhotoService(store, services.NewPreviewRenderer(), blob.NewDisk(uploads, "http://cdn.test/")),
		wallet:   services.NewWalletService(store, notifier),
		notifier: notifier,
		uploads:  uploads,
	}
}

func (f *fixture) register(t *testing.T, email string, creator bool) *models.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), models.RegisterRequest{Email: email, Password: "pw", IsCreator: creator})
	require.NoError(t, err)
	return u
}

func (f *fixture) publish(t *testing.T, creator *models.User, price int) *models.Photo {
	t.Helper()
	p, err := f.photos.Create(context.Background(), creator, models.PhotoCreateRequest{
		Title: "Beach", PriceTokens: price, PreviewURL: "/preview.jpg", OriginalURL: "/original.jpg",
	})
	require.NoError(t, err)
	return p
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, models.RegisterRequest{Email: "  Alice@Example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "secret", u.PasswordHash)
	assert.Zero(t, u.TokenBalance)

	_, err = f.users.Register(ctx, models.RegisterRequest{Email: "alice@example.com", Password: "x"})
	assert.ErrorIs(t, err, services.ErrUserExists)

	_, err = f.users.Register(ctx, models.RegisterRequest{Email: "", Password: "x"})
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	logged, err := f.users.Login(ctx, models.LoginRequest{Email: "ALICE@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	_, err = f.users.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = f.users.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = f.users.Get(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrUserNotFound)
	_, err = f.users.Get(ctx, "")
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestTokenIssuer(t *testing.T) {
	issuer := services.NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Generate("user-1", "a@example.com")
	require.NoError(t, err)

	userID, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = services.NewTokenIssuer("other", time.Hour).Validate(token)
	assert.Error(t, err)

	expired, err := services.NewTokenIssuer("secret", -time.Minute).Generate("user-1", "a@example.com")
	require.NoError(t, err)
	_, err = issuer.Validate(expired)
	assert.Error(t, err)

	_, err = issuer.Validate("not-a-token")
	assert.Error(t, err)
}

func TestCreatePhotoRequiresCreator(t *testing.T) {
	f := newFixture(t)
	viewer := f.register(t, "viewer@example.com", false)

	_, err := f.photos.Create(context.Background(), viewer, models.PhotoCreateRequest{
		Title: "x", PreviewURL: "/p", OriginalURL: "/o",
	})
	assert.ErrorIs(t, err, services.ErrNotCreator)

	creator := f.register(t, "creator@example.com", true)
	for _, req := range []models.PhotoCreateRequest{
		{Title: " ", PreviewURL: "/p", OriginalURL: "/o"},
		{Title: "x", PriceTokens: -1, PreviewURL: "/p", OriginalURL: "/o"},
		{Title: "x", PreviewURL: "/p"},
	} {
		_, err := f.photos.Create(context.Background(), creator, req)
		var verr *services.ValidationError
		assert.ErrorAs(t, err, &verr, "request %+v", req)
	}
}

func TestDetailHidesOriginalUntilUnlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.register(t, "creator@example.com", true)
	viewer := f.register(t, "viewer@example.com", false)
	photo := f.publish(t, creator, 20)

	detail, err := f.photos.Detail(ctx, viewer, photo.ID)
	require.NoError(t, err)
	assert.False(t, detail.Unlocked)
	assert.Equal(t, "/preview.jpg", detail.PreviewURL)
	assert.Empty(t, detail.OriginalURL)

	list, err := f.photos.List(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Unlocked)

	_, err = f.wallet.Add(ctx, viewer.ID, 50)
	require.NoError(t, err)
	_, err = f.wallet.Unlock(ctx, viewer.ID, photo.ID)
	require.NoError(t, err)

	detail, err = f.photos.Detail(ctx, viewer, photo.ID)
	require.NoError(t, err)
	assert.True(t, detail.Unlocked)
	assert.Equal(t, "/original.jpg", detail.OriginalURL)
	assert.Empty(t, detail.PreviewURL)
	assert.Equal(t, "/original.jpg", detail.ImageURL())

	list, err = f.photos.List(ctx, viewer.ID)
	require.NoError(t, err)
	assert.True(t, list[0].Unlocked)

	anonymous, err := f.photos.List(ctx, "")
	require.NoError(t, err)
	assert.False(t, anonymous[0].Unlocked)

	_, err = f.photos.Detail(ctx, viewer, "missing")
	assert.ErrorIs(t, err, services.ErrPhotoNotFound)
}

func TestWalletUnlockFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.register(t, "creator@example.com", true)
	viewer := f.register(t, "viewer@example.com", false)
	photo := f.publish(t, creator, 30)

	_, err := f.wallet.Add(ctx, viewer.ID, 0)
	assert.ErrorIs(t, err, services.ErrAmountNotPositive)
	_, err = f.wallet.Add(ctx, viewer.ID, -5)
	assert.ErrorIs(t, err, services.ErrAmountNotPositive)

	_, err = f.wallet.Unlock(ctx, viewer.ID, photo.ID)
	assert.ErrorIs(t, err, services.ErrNotEnoughTokens)

	balance, err := f.wallet.Add(ctx, viewer.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)

	res, err := f.wallet.Unlock(ctx, viewer.ID, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.UnlockResponse{Detail: "Unlocked", TokenBalance: 20}, res)

	res, err = f.wallet.Unlock(ctx, viewer.ID, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.UnlockResponse{Detail: "Already unlocked", TokenBalance: 20}, res)

	balance, err = f.wallet.Balance(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)

	_, err = f.wallet.Unlock(ctx, viewer.ID, "missing")
	assert.ErrorIs(t, err, services.ErrPhotoNotFound)
	_, err = f.wallet.Balance(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrUserNotFound)

	txs, err := f.wallet.Transactions(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	empty, err := f.wallet.Transactions(ctx, creator.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	events := f.notifier.events[viewer.ID]
	require.Len(t, events, 2)
	assert.Equal(t, "wallet", events[0].Event)
	assert.Equal(t, 50, events[0].TokenBalance)
	assert.Equal(t, "unlocked", events[1].Event)
	assert.Equal(t, photo.ID, events[1].PhotoID)
	assert.Equal(t, 20, events[1].TokenBalance)
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreviewRenderer(t *testing.T) {
	r := services.NewPreviewRenderer()

	out, err := r.Render(testImage(t, 200, 100))
	require.NoError(t, err)
	preview, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, preview.Bounds().Dx())
	assert.Equal(t, 100, preview.Bounds().Dy())

	out, err = r.Render(testImage(t, 960, 480))
	require.NoError(t, err)
	preview, err = jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 480, preview.Bounds().Dx())

	_, err = r.Render([]byte("not an image"))
	assert.Error(t, err)
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.register(t, "creator@example.com", true)

	photo, err := f.photos.Upload(ctx, creator, services.UploadRequest{
		Title:       "Upload",
		PriceTokens: 5,
		Content:     bytes.NewReader(testImage(t, 64, 64)),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(photo.OriginalURL, "http://cdn.test/uploads/originals/"), photo.OriginalURL)
	assert.True(t, strings.HasSuffix(photo.OriginalURL, ".png"), photo.OriginalURL)
	assert.True(t, strings.HasPrefix(photo.PreviewURL, "http://cdn.test/uploads/previews/"), photo.PreviewURL)

	rel := strings.TrimPrefix(photo.PreviewURL, "http://cdn.test/uploads/")
	_, err = os.Stat(filepath.Join(f.uploads, filepath.FromSlash(rel)))
	assert.NoError(t, err)

	_, err = f.photos.Upload(ctx, creator, services.UploadRequest{
		Title:   "Broken",
		Content: strings.NewReader("garbage"),
	})
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	viewer := f.register(t, "viewer@example.com", false)
	_, err = f.photos.Upload(ctx, viewer, services.UploadRequest{Title: "x", Content: strings.NewReader("")})
	assert.ErrorIs(t, err, services.ErrNotCreator)
}

func TestUploadStoresDecodedFormat(t *testing.T) {
	f := newFixture(t)
	creator := f.register(t, "creator@example.com", true)

	// a GIF with markup after the trailer still decodes as a GIF
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.White}), nil))
	buf.WriteString("<html><script>alert(1)</script></html>")

	photo, err := f.photos.Upload(context.Background(), creator, services.UploadRequest{
		Title:   "Polyglot",
		Content: bytes.NewReader(buf.Bytes()),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(photo.OriginalURL, ".gif"), photo.OriginalURL)
	assert.True(t, strings.HasSuffix(photo.PreviewURL, ".jpg"), photo.PreviewURL)

	rel := strings.TrimPrefix(photo.OriginalURL, "http://cdn.test/uploads/")
	_, err = os.Stat(filepath.Join(f.uploads, filepath.FromSlash(rel)))
	assert.NoError(t, err)
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, services.SeedDemo(ctx, f.users, f.photos))
	require.NoError(t, services.SeedDemo(ctx, f.users, f.photos))

	list, err := f.photos.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = f.users.Login(ctx, models.LoginRequest{Email: services.DemoCreatorEmail, Password: services.DemoCreatorPassword})
	assert.NoError(t, err)
}
