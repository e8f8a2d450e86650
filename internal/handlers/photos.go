package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"reveal-backend/internal/models"
	"reveal-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

func ListPhotosHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var viewerID string
		if user := currentUser(c); user != nil {
			viewerID = user.ID
		}
		list, err := photos.List(c.Context(), viewerID)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

func GetPhotoHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		detail, err := photos.Detail(c.Context(), currentUser(c), c.Params("id"))
		if errors.Is(err, services.ErrPhotoNotFound) {
			return fiber.NewError(http.StatusNotFound, "Not found")
		}
		if err != nil {
			return httpError(err)
		}
		return c.JSON(detail)
	}
}

func CreatePhotoHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.PhotoCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "Invalid request")
		}
		photo, err := photos.Create(c.Context(), currentUser(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(photo.Public(false))
	}
}

// UploadPhotoHandler expects a multipart form with a "photo" file plus title,
// description and price_tokens fields.
func UploadPhotoHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("photo")
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "photo file is required")
		}

		price := 0
		if raw := strings.TrimSpace(c.FormValue("price_tokens")); raw != "" {
			if price, err = strconv.Atoi(raw); err != nil {
				return fiber.NewError(http.StatusBadRequest, "price_tokens must be an integer")
			}
		}
		var description *string
		if d := c.FormValue("description"); d != "" {
			description = &d
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "failed to read file")
		}
		defer file.Close()

		photo, err := photos.Upload(c.Context(), currentUser(c), services.UploadRequest{
			Title:       c.FormValue("title"),
			Description: description,
			PriceTokens: price,
			Content:     file,
		})
		if err != nil {
			return httpError(err)
		}
		return c.Status(http.StatusCreated).JSON(photo.Public(false))
	}
}
