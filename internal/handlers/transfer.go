package handlers

import (
	"kudi/internal/logging"
	"kudi/internal/middleware"
	"kudi/internal/services/orchestrator"
	"kudi/internal/utils/response"
	"kudi/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TransferHandler exposes bank transfer endpoints.
type TransferHandler struct {
	transfers Transfers
	logger    *zap.Logger
}

func NewTransferHandler(transfers Transfers, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{transfers: transfers, logger: logging.OrNop(logger)}
}

// Transfer handles POST /api/transfers.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	var req validation.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return fail(c, h.logger, err)
	}

	res, err := h.transfers.Transfer(c.UserContext(), orchestrator.TransferRequest{
		UserID:        middleware.UserID(c),
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		Amount:        req.Amount,
		Narration:     req.Narration,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "transfer submitted", res)
}

// Quote handles GET /api/transfers/quote?amount=.
func (h *TransferHandler) Quote(c *fiber.Ctx) error {
	amount, ok := parseAmount(c.Query("amount"))
	if !ok {
		return response.BadRequest(c, "amount must be a number")
	}
	quote, err := h.transfers.QuoteTransfer(amount)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "transfer quote", quote)
}

// ResolveAccount handles GET /api/accounts/resolve?accountNumber=&bankCode=.
func (h *TransferHandler) ResolveAccount(c *fiber.Ctx) error {
	accountNumber, bankCode := c.Query("accountNumber"), c.Query("bankCode")
	if accountNumber == "" || bankCode == "" {
		return response.BadRequest(c, "accountNumber and bankCode are required")
	}
	account, err := h.transfers.ResolveAccount(c.UserContext(), accountNumber, bankCode)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "account resolved", account)
}
