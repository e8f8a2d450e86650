// Package client is a typed HTTP client for the pay-per-reveal API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reveal-backend/internal/models"
)

// ErrNetwork wraps every failure to reach the server or read its answer.
var ErrNetwork = errors.New("network error")

// NetworkErrorMessage is what Message reports for ErrNetwork.
const NetworkErrorMessage = "Network error"

// APIError is a non-2xx response. Detail is the body's "detail" field and may
// be empty.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Detail, e.Status)
}

// Message is the text a UI shows for err: the server's detail when there is
// one, "Network error" for transport failures, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(err, ErrNetwork):
		return NetworkErrorMessage
	default:
		return fallback
	}
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token, when set, is sent as a bearer token.
	Token string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func userQuery(userID string) url.Values {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e models.ErrorResponse
		if json.Unmarshal(data, &e) == nil {
			apiErr.Detail = e.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrNetwork, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, email, password string, isCreator bool) (*models.UserPublic, error) {
	var user models.UserPublic
	req := models.RegisterRequest{Email: email, Password: password, IsCreator: isCreator}
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login sends the credentials as query parameters.
func (c *Client) Login(ctx context.Context, email, password string) (*models.UserPublic, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("password", password)

	var user models.UserPublic
	if err := c.do(ctx, http.MethodPost, "/auth/login", q, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListPhotos(ctx context.Context, userID string) ([]models.PhotoPublic, error) {
	var photos []models.PhotoPublic
	if err := c.do(ctx, http.MethodGet, "/photos", userQuery(userID), nil, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

func (c *Client) GetPhoto(ctx context.Context, userID, photoID string) (*models.PhotoDetail, error) {
	var photo models.PhotoDetail
	if err := c.do(ctx, http.MethodGet, "/photos/"+url.PathEscape(photoID), userQuery(userID), nil, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

func (c *Client) CreatePhoto(ctx context.Context, userID string, req models.PhotoCreateRequest) (*models.PhotoPublic, error) {
	var photo models.PhotoPublic
	if err := c.do(ctx, http.MethodPost, "/photos", userQuery(userID), req, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

func (c *Client) Unlock(ctx context.Context, userID, photoID string) (*models.UnlockResponse, error) {
	var res models.UnlockResponse
	req := models.UnlockRequest{PhotoID: photoID}
	if err := c.do(ctx, http.MethodPost, "/unlock", userQuery(userID), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Wallet(ctx context.Context, userID string) (int, error) {
	var balance int
	if err := c.do(ctx, http.MethodGet, "/wallet", userQuery(userID), nil, &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (c *Client) AddTokens(ctx context.Context, userID string, amount int) (*models.WalletResponse, error) {
	var res models.WalletResponse
	req := models.TokenPurchaseRequest{Amount: amount}
	if err := c.do(ctx, http.MethodPost, "/wallet/add", userQuery(userID), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Transactions(ctx context.Context, userID string) ([]models.TokenTransaction, error) {
	var txs []models.TokenTransaction
	if err := c.do(ctx, http.MethodGet, "/wallet/transactions", userQuery(userID), nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
