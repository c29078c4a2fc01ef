package handlers

import (
	"time"

	"kudi/internal/logging"
	"kudi/internal/utils/response"
	"kudi/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// AdminHandler serves the operator's read views and revenue sweeps.
type AdminHandler struct {
	revenue  Revenue
	loyalty  Loyalty
	wallets  Wallets
	replayer Replayer
	loc      *time.Location
	logger   *zap.Logger
}

func NewAdminHandler(rev Revenue, loyalty Loyalty, wallets Wallets, replayer Replayer, loc *time.Location, logger *zap.Logger) *AdminHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{
		revenue:  rev,
		loyalty:  loyalty,
		wallets:  wallets,
		replayer: replayer,
		loc:      loc,
		logger:   logging.OrNop(logger),
	}
}

func (h *AdminHandler) RevenueSummary(c *fiber.Ctx) error {
	summary, err := h.revenue.Summary(c.UserContext())
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "revenue summary", summary)
}

func (h *AdminHandler) UncollectedRevenue(c *fiber.Ctx) error {
	pending, err := h.revenue.UncollectedRevenue(c.UserContext())
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "uncollected revenue", pending)
}

// CollectRevenue sweeps everything unless the body names an amount.
func (h *AdminHandler) CollectRevenue(c *fiber.Ctx) error {
	var req validation.CollectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
	}
	if err := validation.Struct(req); err != nil {
		return fail(c, h.logger, err)
	}

	res, err := h.revenue.Collect(c.UserContext(), req.Amount)
	if err != nil {
		return fail(c, h.logger, err)
	}
	h.logger.Info("revenue collection requested",
		zap.String("reference", res.Reference),
		zap.String("amount", res.CollectedAmount.String()))
	return response.Success(c, "revenue collected", res)
}

func (h *AdminHandler) Collections(c *fiber.Ctx) error {
	history, err := h.revenue.CollectionHistory(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "collection history", history)
}

// LoyaltyAnalytics takes inclusive from/to dates in the loyalty timezone.
func (h *AdminHandler) LoyaltyAnalytics(c *fiber.Ctx) error {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			return response.BadRequest(c, "from must be a YYYY-MM-DD date")
		}
		from = d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			return response.BadRequest(c, "to must be a YYYY-MM-DD date")
		}
		to = d.AddDate(0, 0, 1)
	}

	report, err := h.loyalty.LoyaltyAnalytics(c.UserContext(), from, to)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "loyalty analytics", report)
}

func (h *AdminHandler) ReconcileWallet(c *fiber.Ctx) error {
	rec, err := h.wallets.ReplayBalance(c.UserContext(), c.Params("userID"))
	if err != nil {
		return fail(c, h.logger, err)
	}
	message := "wallet balanced"
	if !rec.Balanced {
		message = "wallet balance drift detected"
	}
	return response.Success(c, message, rec)
}

func (h *AdminHandler) SetWalletStatus(c *fiber.Ctx) error {
	var req validation.WalletStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return fail(c, h.logger, err)
	}

	w, err := h.wallets.SetActive(c.UserContext(), c.Params("userID"), *req.Active)
	if err != nil {
		return fail(c, h.logger, err)
	}
	message := "wallet reopened"
	if !w.IsActive {
		message = "wallet frozen"
	}
	return response.Success(c, message, w)
}

func (h *AdminHandler) ReplayWebhooks(c *fiber.Ctx) error {
	n, err := h.replayer.ReplayPending(c.UserContext())
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "webhook inbox replayed", fiber.Map{"replayed": n})
}
