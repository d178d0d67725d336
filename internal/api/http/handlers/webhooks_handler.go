package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-bridge/internal/api/dto"
	"github.com/spec-kit/incident-bridge/internal/domain"
	"github.com/spec-kit/incident-bridge/internal/service"
	apperrors "github.com/spec-kit/incident-bridge/pkg/util"
)

// SignatureHeader carries the alerting webhook's comma-joined v1 signatures.
const SignatureHeader = "X-PagerDuty-Signature"

// WebhooksHandler receives inbound webhooks from both platforms.
type WebhooksHandler struct {
	sync *service.SyncService
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(syncService *service.SyncService) *WebhooksHandler {
	return &WebhooksHandler{sync: syncService}
}

// ConnectWise POST /webhooks/connectwise.
func (h *WebhooksHandler) ConnectWise(c *fiber.Ctx) error {
	var req dto.ConnectWiseEvent
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketEventInput{
		Type:   req.Type,
		Action: req.Action,
		Ticket: domain.Ticket{
			ID:       req.Ticket.ID,
			Board:    req.Ticket.Board.Name,
			Status:   req.Ticket.Status.Name,
			Priority: req.Ticket.Priority.Name,
			Summary:  req.Ticket.Summary,
		},
	}
	result, err := h.sync.HandleTicketEvent(c.Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// PagerDuty POST /webhooks/pagerduty. The raw request bytes are handed to
// the service untouched; signature verification depends on them.
func (h *WebhooksHandler) PagerDuty(c *fiber.Ctx) error {
	rawBody := c.Body()
	if len(rawBody) == 0 {
		return apperrors.NewValidationError("empty payload", nil)
	}

	result, err := h.sync.HandleIncidentEvent(c.Context(), rawBody, c.Get(SignatureHeader))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
