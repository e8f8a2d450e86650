package services

import (
	"context"
	"errors"
	"log"

	"reveal-backend/internal/models"
)

const (
	DemoCreatorEmail    = "creator@demo.local"
	DemoCreatorPassword = "demo"
)

type demoPhoto struct {
	title, description string
	price              int
	picsumID           string
}

var demoPhotos = []demoPhoto{
	{"Mountain Lake", "Still water under the ridge at dawn.", 10, "1015"},
	{"City Lights", "Downtown from the old bridge.", 25, "1031"},
	{"Desert Road", "Straight to the horizon.", 40, "1018"},
}

// SeedDemo registers a creator with a few photos so a fresh server has a
// gallery to browse. It does nothing if the creator already exists.
func SeedDemo(ctx context.Context, users *UserService, photos *PhotoService) error {
	creator, err := users.Register(ctx, models.RegisterRequest{
		Email:     DemoCreatorEmail,
		Password:  DemoCreatorPassword,
		IsCreator: true,
	})
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, p := range demoPhotos {
		description := p.description
		_, err := photos.Create(ctx, creator, models.PhotoCreateRequest{
			Title:       p.title,
			Description: &description,
			PriceTokens: p.price,
			PreviewURL:  "https://picsum.photos/id/" + p.picsumID + "/600/400?blur=10",
			OriginalURL: "https://picsum.photos/id/" + p.picsumID + "/1200/800",
		})
		if err != nil {
			return err
		}
	}
	log.Printf("Seeded demo gallery (%s / %s)", DemoCreatorEmail, DemoCreatorPassword)
	return nil
}
