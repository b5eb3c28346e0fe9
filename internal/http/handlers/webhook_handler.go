package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "orderbot/internal/log"
	"orderbot/internal/services"
)

type WebhookHandler struct {
	VerifyToken string
	Ingest      *services.IngestService
}

// webhookEnvelope is the provider's delivery shape, decoded once here; the
// pipeline only ever sees the typed fields below.
type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Verify answers the provider's subscription handshake: echo the challenge
// when the verify token matches, 403 otherwise.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.VerifyToken {
		applog.Info(c, "webhook.verified", nil)
		return c.SendString(challenge)
	}
	applog.Security(c, "webhook.verify.reject", map[string]any{"mode": mode})
	return c.SendStatus(fiber.StatusForbidden)
}

// Receive handles one webhook delivery. Anything that is not a text message
// is acknowledged and ignored; a 200 is what stops the provider from
// redelivering, so only store failures return a non-2xx.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var env webhookEnvelope
	if err := c.BodyParser(&env); err != nil {
		applog.Security(c, "webhook.bad_payload", map[string]any{"err": err.Error()})
		return c.SendStatus(fiber.StatusBadRequest)
	}

	msg, phoneNumberID, ok := firstTextMessage(env)
	if !ok {
		return c.SendStatus(fiber.StatusOK)
	}
	applog.Info(c, "webhook.message", map[string]any{
		"message_id": msg.ID, "from": msg.From, "phone_number_id": phoneNumberID,
	})

	outcome, err := h.Ingest.Handle(msg.From, msg.ID, msg.Text.Body)
	if err != nil {
		// Claim released; the provider's redelivery retries this for us.
		applog.Error(c, "webhook.process", err, map[string]any{"message_id": msg.ID})
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if outcome == services.DuplicateSkipped {
		applog.Info(c, "webhook.skip_duplicate", map[string]any{"message_id": msg.ID})
	}
	return c.SendStatus(fiber.StatusOK)
}

func firstTextMessage(env webhookEnvelope) (inboundMessage, string, bool) {
	if env.Object != "whatsapp_business_account" {
		return inboundMessage{}, "", false
	}
	for _, e := range env.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				if m.Type == "text" && m.ID != "" {
					return m, ch.Value.Metadata.PhoneNumberID, true
				}
			}
		}
	}
	return inboundMessage{}, "", false
}
