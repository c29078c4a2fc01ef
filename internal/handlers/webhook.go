package handlers

import (
	"errors"

	"kudi/internal/logging"
	"kudi/internal/services/webhook"
	"kudi/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SignatureHeaders maps each provider to the header carrying its signature.
var SignatureHeaders = map[string]string{
	webhook.ProviderVerification: "x-paystack-signature",
	webhook.ProviderDisbursement: "verif-hash",
}

type WebhookHandler struct {
	webhooks Webhooks
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks Webhooks, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logging.OrNop(logger)}
}

// Receive handles POST /webhooks/:provider. Anything that was stored is
// acknowledged with 200 so the provider stops redelivering; only storage
// failures ask for a retry.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	provider := c.Params("provider")
	header, known := SignatureHeaders[provider]
	if !known {
		return response.NotFound(c, "unknown provider")
	}

	// fiber reuses the request buffer after the handler returns
	body := append([]byte(nil), c.Body()...)

	res, err := h.webhooks.Ingest(c.UserContext(), provider, c.Get(header), body)
	switch {
	case err == nil:
		return response.Success(c, "webhook received", res)
	case errors.Is(err, webhook.ErrInvalidSignature):
		return response.Unauthorized(c, "invalid signature")
	case errors.Is(err, webhook.ErrMalformedPayload):
		h.logger.Warn("malformed webhook acknowledged", zap.String("provider", provider), zap.Error(err))
		return c.JSON(response.Body{Success: false, Message: "malformed payload"})
	default:
		h.logger.Error("webhook not stored", zap.String("provider", provider), zap.Error(err))
		return response.ServerError(c)
	}
}
