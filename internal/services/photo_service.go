package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"image"
	"log"
	"strings"

	"reveal-backend/internal/blob"
	"reveal-backend/internal/models"
	"reveal-backend/internal/storage"

	"github.com/google/uuid"
)

type PhotoService struct {
	store    storage.Store
	renderer PreviewRenderer
	blobs    blob.Store
}

func NewPhotoService(store storage.Store, renderer PreviewRenderer, blobs blob.Store) *PhotoService {
	return &PhotoService{store: store, renderer: renderer, blobs: blobs}
}

func validatePhoto(req models.PhotoCreateRequest) error {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return invalid("Title is required")
	case req.PriceTokens < 0:
		return invalid("Price must not be negative")
	case req.PreviewURL == "" || req.OriginalURL == "":
		return invalid("Preview and original URLs are required")
	}
	return nil
}

// Create publishes a photo from already hosted assets.
func (s *PhotoService) Create(ctx context.Context, creator *models.User, req models.PhotoCreateRequest) (*models.Photo, error) {
	if !creator.IsCreator {
		return nil, ErrNotCreator
	}
	if err := validatePhoto(req); err != nil {
		return nil, err
	}

	photo := &models.Photo{
		CreatorID:   creator.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		PriceTokens: req.PriceTokens,
		PreviewURL:  req.PreviewURL,
		OriginalURL: req.OriginalURL,
	}
	if err := s.store.CreatePhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("create photo: %w", err)
	}
	return photo, nil
}

// List marks the photos viewerID owns. An empty or unknown viewer sees
// everything locked.
func (s *PhotoService) List(ctx context.Context, viewerID string) ([]models.PhotoPublic, error) {
	photos, err := s.store.ListPhotos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	unlocked := map[string]bool{}
	if viewerID != "" {
		if unlocked, err = s.store.UnlockedPhotoIDs(ctx, viewerID); err != nil {
			return nil, fmt.Errorf("list unlocks: %w", err)
		}
	}

	out := make([]models.PhotoPublic, 0, len(photos))
	for _, p := range photos {
		out = append(out, p.Public(unlocked[p.ID]))
	}
	return out, nil
}

func (s *PhotoService) Detail(ctx context.Context, viewer *models.User, photoID string) (*models.PhotoDetail, error) {
	photo, err := s.store.GetPhoto(ctx, photoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}

	owned, err := s.store.IsUnlocked(ctx, viewer.ID, photoID)
	if err != nil {
		return nil, fmt.Errorf("check unlock: %w", err)
	}
	detail := photo.Detail(owned)
	return &detail, nil
}

// UploadRequest describes an image uploaded through the creator form.
type UploadRequest struct {
	Title       string
	Description *string
	PriceTokens int
	Content     io.Reader
}

// imageTypes maps a decoded format to the stored extension and content type.
// Stored extensions come only from this table.
var imageTypes = map[string]struct{ ext, contentType string }{
	"jpeg": {".jpg", "image/jpeg"},
	"png":  {".png", "image/png"},
	"gif":  {".gif", "image/gif"},
	"bmp":  {".bmp", "image/bmp"},
	"tiff": {".tiff", "image/tiff"},
}

// Upload stores the original under an unguessable name and writes a rendered
// preview next to it.
func (s *PhotoService) Upload(ctx context.Context, creator *models.User, req UploadRequest) (*models.Photo, error) {
	if !creator.IsCreator {
		return nil, ErrNotCreator
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, invalid("Title is required")
	}
	if req.PriceTokens < 0 {
		return nil, invalid("Price must not be negative")
	}

	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	kind, ok := imageTypes[format]
	if err != nil || !ok {
		return nil, invalid("Unsupported image")
	}
	preview, err := s.renderer.Render(data)
	if err != nil {
		return nil, invalid("Unsupported image")
	}

	name := uuid.New().String()
	originalKey := "originals/" + name + kind.ext
	previewKey := "previews/" + name + ".jpg"

	originalURL, err := s.blobs.Put(ctx, originalKey, kind.contentType, data)
	if err != nil {
		return nil, err
	}
	previewURL, err := s.blobs.Put(ctx, previewKey, "image/jpeg", preview)
	if err != nil {
		s.cleanup(ctx, originalKey)
		return nil, err
	}

	photo, err := s.Create(ctx, creator, models.PhotoCreateRequest{
		Title:       req.Title,
		Description: req.Description,
		PriceTokens: req.PriceTokens,
		PreviewURL:  previewURL,
		OriginalURL: originalURL,
	})
	if err != nil {
		// Try to cleanup files if DB insert fails
		s.cleanup(ctx, originalKey, previewKey)
		return nil, err
	}
	return photo, nil
}

func (s *PhotoService) cleanup(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Printf("cleanup %s: %v", key, err)
		}
	}
}
