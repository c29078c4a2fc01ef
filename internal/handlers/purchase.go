package handlers

import (
	"kudi/internal/logging"
	"kudi/internal/middleware"
	"kudi/internal/models"
	"kudi/internal/services/orchestrator"
	"kudi/internal/utils/response"
	"kudi/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PurchaseHandler exposes airtime, data and bill payments.
type PurchaseHandler struct {
	purchases Purchases
	logger    *zap.Logger
}

func NewPurchaseHandler(purchases Purchases, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, logger: logging.OrNop(logger)}
}

func (h *PurchaseHandler) Airtime(c *fiber.Ctx) error {
	var req validation.AirtimeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	return h.purchase(c, req, orchestrator.PurchaseRequest{
		Service: models.ServiceAirtime,
		Amount:  req.Amount,
		Phone:   req.Phone,
		Network: req.Network,
	})
}

func (h *PurchaseHandler) Data(c *fiber.Ctx) error {
	var req validation.DataRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	return h.purchase(c, req, orchestrator.PurchaseRequest{
		Service: models.ServiceData,
		Amount:  req.Amount,
		Phone:   req.Phone,
		Network: req.Network,
		Plan:    req.Plan,
	})
}

func (h *PurchaseHandler) Bill(c *fiber.Ctx) error {
	var req validation.BillRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	return h.purchase(c, req, orchestrator.PurchaseRequest{
		Service:    models.ServiceBill,
		Amount:     req.Amount,
		BillerCode: req.BillerCode,
		CustomerID: req.CustomerID,
	})
}

func (h *PurchaseHandler) purchase(c *fiber.Ctx, body interface{}, req orchestrator.PurchaseRequest) error {
	if err := validation.Struct(body); err != nil {
		return fail(c, h.logger, err)
	}
	req.UserID = middleware.UserID(c)

	res, err := h.purchases.Purchase(c.UserContext(), req)
	if err != nil {
		return fail(c, h.logger, err)
	}
	message := string(req.Service) + " purchase successful"
	if res.Status == models.StatusPending {
		message = string(req.Service) + " purchase is processing"
	}
	return response.Success(c, message, res)
}

// Quote handles GET /api/purchases/quote?service=&amount=.
func (h *PurchaseHandler) Quote(c *fiber.Ctx) error {
	service := models.Service(c.Query("service"))
	switch service {
	case models.ServiceAirtime, models.ServiceData, models.ServiceBill:
	default:
		return response.BadRequest(c, "service must be one of airtime, data, bill")
	}
	amount, ok := parseAmount(c.Query("amount"))
	if !ok {
		return response.BadRequest(c, "amount must be a number")
	}

	quote, err := h.purchases.QuotePurchase(c.UserContext(), middleware.UserID(c), service, amount)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "purchase quote", quote)
}
