package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ogmarket/checkout/internal/service"
	"github.com/ogmarket/checkout/pkg/logging"
)

// WebhookHTTP receives settlement callbacks from the payment gateway.
// The route is unauthenticated; the reconciler treats the payload as
// untrusted and at-least-once.
type WebhookHTTP struct {
	Svc *service.SettlementService
}

type webhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

func (h *WebhookHTTP) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.webhook")

	var req webhookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("webhook_error", "reason", "invalid body", "error", err)
		return respondError(c, http.StatusBadRequest, "invalid body")
	}

	err := h.Svc.HandleSettlement(ctx, service.SettlementEvent{
		Event:       req.Event,
		Reference:   req.Data.Reference,
		AmountMinor: req.Data.Amount,
	})
	switch {
	case err == nil:
		return respond(c, http.StatusOK, "ok", nil)
	case errors.Is(err, service.ErrNotFound):
		// Unknown reference: acknowledged so a forged or stale webhook does
		// not trigger a redelivery storm. Logged for alerting.
		l.Warn("webhook reference not recognized", "reference", req.Data.Reference)
		return respond(c, http.StatusOK, "ok", nil)
	case errors.Is(err, service.ErrAmountMismatch):
		// Order was marked failed; redelivering the same event cannot help.
		return respond(c, http.StatusOK, "ok", nil)
	default:
		// Settlement rolled back; the gateway should retry.
		l.Error("webhook_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "settlement failed")
	}
}
