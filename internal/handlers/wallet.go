package handlers

import (
	"net/http"

	"reveal-backend/internal/models"
	"reveal-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// GetWalletHandler answers with the bare balance, e.g. `50`.
func GetWalletHandler(wallet *services.WalletService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		balance, err := wallet.Balance(c.Context(), currentUser(c).ID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(balance)
	}
}

func AddTokensHandler(wallet *services.WalletService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.TokenPurchaseRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "Invalid request")
		}
		balance, err := wallet.Add(c.Context(), currentUser(c).ID, req.Amount)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(models.WalletResponse{TokenBalance: balance})
	}
}

func TransactionsHandler(wallet *services.WalletService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		txs, err := wallet.Transactions(c.Context(), currentUser(c).ID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(txs)
	}
}

func UnlockHandler(wallet *services.WalletService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UnlockRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "Invalid request")
		}
		if req.PhotoID == "" {
			return fiber.NewError(http.StatusBadRequest, "photo_id is required")
		}
		res, err := wallet.Unlock(c.Context(), currentUser(c).ID, req.PhotoID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(res)
	}
}
