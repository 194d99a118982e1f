package http

import (
	"itk_server/core/port/in"
	"itk_server/pkg/apperr"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// WebhookHandler receives inbound email reply payloads from the email
// provider. The payload shape varies by provider, so it is taken as a loose
// map and normalized downstream.
type WebhookHandler struct {
	replies       in.ReplyUseCase
	webhookSecret string
}

func NewWebhookHandler(replies in.ReplyUseCase, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		replies:       replies,
		webhookSecret: webhookSecret,
	}
}

func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/inbound-reply", h.InboundReply)
}

// checkSecret verifies the webhook secret when one is configured. Providers
// differ on the header name, so both the explicit secret header and the
// provider signature header are accepted.
func (h *WebhookHandler) checkSecret(c *fiber.Ctx) error {
	if h.webhookSecret == "" {
		return nil
	}
	provided := c.Get("X-Webhook-Secret")
	if provided == "" {
		provided = c.Get("X-Provider-Signature")
	}
	if provided != h.webhookSecret {
		return apperr.Unauthorized("unauthorized webhook request")
	}
	return nil
}

func (h *WebhookHandler) InboundReply(c *fiber.Ctx) error {
	if err := h.checkSecret(c); err != nil {
		return err
	}

	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return apperr.BadRequest("invalid webhook payload")
	}

	result, err := h.replies.ProcessPayload(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
