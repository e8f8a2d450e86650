package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"reveal-backend/internal/app"
	"reveal-backend/internal/blob"
	"reveal-backend/internal/config"
	"reveal-backend/internal/models"
	"reveal-backend/internal/storage"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		StorageDriver:    "memory",
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		AllowUserIDParam: true,
		CORSOrigins:      []string{"http://localhost:3000"},
		UploadDir:        t.TempDir(),
	}
}

func newServer(t *testing.T) *app.Server {
	t.Helper()
	return newServerWith(t, testConfig(t))
}

func newServerWith(t *testing.T, cfg config.Config) *app.Server {
	t.Helper()
	srv := app.New(cfg, storage.NewMemoryStore(), blob.NewDisk(cfg.UploadDir, cfg.BaseURL))
	srv.Users.Cost = bcrypt.MinCost
	return srv
}

type apiCall struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	token  string
}

func call(t *testing.T, srv *app.Server, c apiCall, out interface{}) int {
	t.Helper()

	target := c.path
	if len(c.query) > 0 {
		target += "?" + c.query.Encode()
	}
	var body io.Reader
	if c.body != nil {
		data, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(c.method, target, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(data, out), string(data))
	}
	return resp.StatusCode
}

func uid(id string) url.Values {
	return url.Values{"user_id": {id}}
}

func register(t *testing.T, srv *app.Server, email string, creator bool) models.UserPublic {
	t.Helper()
	var user models.UserPublic
	status := call(t, srv, apiCall{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   models.RegisterRequest{Email: email, Password: "pw", IsCreator: creator},
	}, &user)
	require.Equal(t, http.StatusOK, status)
	return user
}

func publish(t *testing.T, srv *app.Server, creator models.UserPublic, title string, price int) models.PhotoPublic {
	t.Helper()
	var photo models.PhotoPublic
	status := call(t, srv, apiCall{
		method: http.MethodPost,
		path:   "/photos",
		query:  uid(creator.ID),
		body: models.PhotoCreateRequest{
			Title: title, PriceTokens: price, PreviewURL: "/blur/" + title, OriginalURL: "/full/" + title,
		},
	}, &photo)
	require.Equal(t, http.StatusOK, status)
	return photo
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newServer(t)

	user := register(t, srv, "a@example.com", false)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.AccessToken)
	assert.Equal(t, 0, user.TokenBalance)

	var errBody models.ErrorResponse
	status := call(t, srv, apiCall{
		method: http.MethodPost, path: "/auth/register",
		body: models.RegisterRequest{Email: "a@example.com", Password: "x"},
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email already registered", errBody.Detail)

	var logged models.UserPublic
	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/auth/login",
		query: url.Values{"email": {"a@example.com"}, "password": {"pw"}},
	}, &logged)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.ID, logged.ID)

	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/auth/login",
		body: models.LoginRequest{Email: "a@example.com", Password: "pw"},
	}, &logged)
	assert.Equal(t, http.StatusOK, status)

	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/auth/login",
		query: url.Values{"email": {"a@example.com"}, "password": {"bad"}},
	}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", errBody.Detail)
}

func TestLoginWithUnreadableBody(t *testing.T) {
	srv := newServer(t)
	register(t, srv, "a@example.com", false)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("email=a@example.com"))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var errBody models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", errBody.Detail)
}

func TestPhotoEndpoints(t *testing.T) {
	srv := newServer(t)
	creator := register(t, srv, "creator@example.com", true)
	viewer := register(t, srv, "viewer@example.com", false)
	photo := publish(t, srv, creator, "lake", 10)
	assert.Equal(t, creator.ID, photo.CreatorID)
	assert.False(t, photo.Unlocked)

	var errBody models.ErrorResponse
	status := call(t, srv, apiCall{
		method: http.MethodPost, path: "/photos", query: uid(viewer.ID),
		body: models.PhotoCreateRequest{Title: "x", PreviewURL: "/p", OriginalURL: "/o"},
	}, &errBody)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Only creators can upload", errBody.Detail)

	var list []models.PhotoPublic
	status = call(t, srv, apiCall{method: http.MethodGet, path: "/photos"}, &list)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)

	var raw map[string]interface{}
	status = call(t, srv, apiCall{method: http.MethodGet, path: "/photos/" + photo.ID, query: uid(viewer.ID)}, &raw)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/blur/lake", raw["preview_url"])
	_, leaked := raw["original_url"]
	assert.False(t, leaked, spew.Sdump(raw))

	status = call(t, srv, apiCall{method: http.MethodGet, path: "/photos/" + photo.ID}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid user", errBody.Detail)

	status = call(t, srv, apiCall{method: http.MethodGet, path: "/photos/missing", query: uid(viewer.ID)}, &errBody)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not found", errBody.Detail)
}

func TestWalletAndUnlock(t *testing.T) {
	srv := newServer(t)
	creator := register(t, srv, "creator@example.com", true)
	viewer := register(t, srv, "viewer@example.com", false)
	photo := publish(t, srv, creator, "lake", 30)

	var balance int
	status := call(t, srv, apiCall{method: http.MethodGet, path: "/wallet", query: uid(viewer.ID)}, &balance)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, balance)

	var errBody models.ErrorResponse
	status = call(t, srv, apiCall{method: http.MethodGet, path: "/wallet", query: uid("nobody")}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/unlock", query: uid(viewer.ID),
		body: models.UnlockRequest{PhotoID: photo.ID},
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Not enough tokens", errBody.Detail)

	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/wallet/add", query: uid(viewer.ID),
		body: models.TokenPurchaseRequest{Amount: 0},
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Amount must be positive", errBody.Detail)

	var wallet models.WalletResponse
	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/wallet/add", query: uid(viewer.ID),
		body: models.TokenPurchaseRequest{Amount: 50},
	}, &wallet)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 50, wallet.TokenBalance)

	var unlocked models.UnlockResponse
	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/unlock", query: uid(viewer.ID),
		body: models.UnlockRequest{PhotoID: photo.ID},
	}, &unlocked)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.UnlockResponse{Detail: "Unlocked", TokenBalance: 20}, unlocked)

	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/unlock", query: uid(viewer.ID),
		body: models.UnlockRequest{PhotoID: photo.ID},
	}, &unlocked)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.UnlockResponse{Detail: "Already unlocked", TokenBalance: 20}, unlocked)

	status = call(t, srv, apiCall{
		method: http.MethodPost, path: "/unlock", query: uid(viewer.ID),
		body: models.UnlockRequest{PhotoID: "missing"},
	}, &errBody)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Photo not found", errBody.Detail)

	var detail models.PhotoDetail
	status = call(t, srv, apiCall{method: http.MethodGet, path: "/photos/" + photo.ID, query: uid(viewer.ID)}, &detail)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, detail.Unlocked)
	assert.Equal(t, "/full/lake", detail.OriginalURL)

	var list []models.PhotoPublic
	call(t, srv, apiCall{method: http.MethodGet, path: "/photos", query: uid(viewer.ID)}, &list)
	require.Len(t, list, 1)
	assert.True(t, list[0].Unlocked)

	var txs []models.TokenTransaction
	status = call(t, srv, apiCall{method: http.MethodGet, path: "/wallet/transactions", query: uid(viewer.ID)}, &txs)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, txs, 2, spew.Sdump(txs))
	assert.Equal(t, models.TransactionUnlock, txs[0].Kind)
}

func TestWalletAddRejectsOverflow(t *testing.T) {
	srv := newServer(t)
	viewer := register(t, srv, "viewer@example.com", false)

	var wallet models.WalletResponse
	status := call(t, srv, apiCall{
		method: http.MethodPost, path: "/wallet/add", query: uid(viewer.ID),
		body: models.TokenPurchaseRequest{Amount: 50},
	}, &wallet)
	require.Equal(t, http.StatusOK, status)

	for _, amount := range []int{math.MaxInt, storage.MaxBalance} {
		var errBody models.ErrorResponse
		status = call(t, srv, apiCall{
			method: http.MethodPost, path: "/wallet/add", query: uid(viewer.ID),
			body: models.TokenPurchaseRequest{Amount: amount},
		}, &errBody)
		assert.Equal(t, http.StatusBadRequest, status, amount)
		assert.Equal(t, "Amount too large", errBody.Detail)
	}

	var balance int
	status = call(t, srv, apiCall{method: http.MethodGet, path: "/wallet", query: uid(viewer.ID)}, &balance)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 50, balance)
}

func TestBearerTokenIdentity(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowUserIDParam = false
	srv := newServerWith(t, cfg)

	user := register(t, srv, "a@example.com", false)

	var errBody models.ErrorResponse
	status := call(t, srv, apiCall{method: http.MethodGet, path: "/wallet", query: uid(user.ID)}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)

	var balance int
	status = call(t, srv, apiCall{method: http.MethodGet, path: "/wallet", token: user.AccessToken}, &balance)
	assert.Equal(t, http.StatusOK, status)

	status = call(t, srv, apiCall{method: http.MethodGet, path: "/wallet", token: "garbage"}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid user", errBody.Detail)
}

func TestUploadEndpoint(t *testing.T) {
	srv := newServer(t)
	creator := register(t, srv, "creator@example.com", true)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 20))))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("photo", "evil.html")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, form.WriteField("title", "Uploaded"))
	require.NoError(t, form.WriteField("price_tokens", "15"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/photos/upload?user_id="+creator.ID, &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var photo models.PhotoPublic
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&photo))
	assert.Equal(t, "Uploaded", photo.Title)
	assert.Equal(t, 15, photo.PriceTokens)
	assert.True(t, strings.HasPrefix(photo.PreviewURL, "/uploads/previews/"), photo.PreviewURL)

	preview, err := srv.App.Test(httptest.NewRequest(http.MethodGet, photo.PreviewURL, nil), -1)
	require.NoError(t, err)
	defer preview.Body.Close()
	assert.Equal(t, http.StatusOK, preview.StatusCode)
	assert.Equal(t, "image/jpeg", preview.Header.Get("Content-Type"))

	detail := models.PhotoDetail{}
	status := call(t, srv, apiCall{method: http.MethodGet, path: "/photos/" + photo.ID, query: uid(creator.ID)}, &detail)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasSuffix(detail.PreviewURL, ".jpg"), detail.PreviewURL)
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	var body map[string]string
	status := call(t, srv, apiCall{method: http.MethodGet, path: "/health"}, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownRouteRendersDetail(t *testing.T) {
	srv := newServer(t)
	var body models.ErrorResponse
	status := call(t, srv, apiCall{method: http.MethodGet, path: "/nope"}, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body.Detail)
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	store, err := app.OpenStore(ctx, cfg)
	require.NoError(t, err)
	assert.NoError(t, store.Ping(ctx))
	store.Close()

	blobs, err := app.OpenBlobs(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &blob.Disk{}, blobs)

	cfg.StorageDriver = "mongo"
	_, err = app.OpenStore(ctx, cfg)
	assert.Error(t, err)

	cfg.BlobDriver = "ftp"
	_, err = app.OpenBlobs(ctx, cfg)
	assert.Error(t, err)
}
