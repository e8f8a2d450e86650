package models

import "time"

// Photo is a creator's item. OriginalURL must only leave the server for users
// that unlocked it.
type Photo struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	PriceTokens int       `json:"price_tokens"`
	PreviewURL  string    `json:"preview_url"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// PhotoPublic is the gallery list entry.
type PhotoPublic struct {
	ID          string  `json:"id"`
	CreatorID   string  `json:"creator_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	PriceTokens int     `json:"price_tokens"`
	PreviewURL  string  `json:"preview_url"`
	Unlocked    bool    `json:"unlocked"`
}

// PhotoDetail carries exactly one of PreviewURL or OriginalURL.
type PhotoDetail struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	PreviewURL  string  `json:"preview_url,omitempty"`
	OriginalURL string  `json:"original_url,omitempty"`
	PriceTokens int     `json:"price_tokens"`
	Unlocked    bool    `json:"unlocked"`
}

// ImageURL is the asset a viewer should display.
func (d PhotoDetail) ImageURL() string {
	if d.Unlocked {
		return d.OriginalURL
	}
	return d.PreviewURL
}

type PhotoCreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	PriceTokens int     `json:"price_tokens"`
	PreviewURL  string  `json:"preview_url"`
	OriginalURL string  `json:"original_url"`
}

// Public converts the stored photo to its list form.
func (p Photo) Public(unlocked bool) PhotoPublic {
	return PhotoPublic{
		ID:          p.ID,
		CreatorID:   p.CreatorID,
		Title:       p.Title,
		Description: p.Description,
		PriceTokens: p.PriceTokens,
		PreviewURL:  p.PreviewURL,
		Unlocked:    unlocked,
	}
}

// Detail converts the stored photo to its detail form, hiding the original
// unless unlocked.
func (p Photo) Detail(unlocked bool) PhotoDetail {
	d := PhotoDetail{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		PriceTokens: p.PriceTokens,
		Unlocked:    unlocked,
	}
	if unlocked {
		d.OriginalURL = p.OriginalURL
	} else {
		d.PreviewURL = p.PreviewURL
	}
	return d
}
