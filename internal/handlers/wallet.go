package handlers

import (
	"errors"

	apperrors "kudi/internal/errors"
	"kudi/internal/logging"
	"kudi/internal/middleware"
	"kudi/internal/providers"
	"kudi/internal/utils/response"
	"kudi/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletHandler struct {
	wallets  Wallets
	accounts Accounts
	logger   *zap.Logger
}

func NewWalletHandler(wallets Wallets, accounts Accounts, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, accounts: accounts, logger: logging.OrNop(logger)}
}

// GetWallet opens the wallet on first access.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	w, err := h.wallets.GetWallet(c.UserContext(), userID)
	if errors.Is(err, apperrors.ErrWalletNotFound) {
		w, err = h.wallets.CreateWallet(c.UserContext(), userID)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "wallet retrieved", w)
}

// IssueVirtualAccount handles POST /api/virtual-account. Repeated calls
// return the account already issued.
func (h *WalletHandler) IssueVirtualAccount(c *fiber.Ctx) error {
	var req validation.VirtualAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return fail(c, h.logger, err)
	}

	account, err := h.accounts.IssueVirtualAccount(c.UserContext(), providers.Identity{
		UserID:    middleware.UserID(c),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		BVN:       req.BVN,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "virtual account ready", account)
}
