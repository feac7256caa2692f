package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ogmarket/checkout/internal/gateway"
	"github.com/ogmarket/checkout/internal/service"
	"github.com/ogmarket/checkout/pkg/logging"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

type checkoutRequest struct {
	PaymentMethod     string `json:"payment_method"`
	MobileCallbackURL string `json:"mobile_callback_url"`
}

func (h *CheckoutHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout")

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "invalid body", "error", err)
		return respondError(c, http.StatusBadRequest, "invalid body")
	}

	result, err := h.Svc.Checkout(ctx,
		service.User{ID: id.UserID, Email: id.Email},
		service.CheckoutRequest{
			Method:            service.PaymentMethod(req.PaymentMethod),
			MobileCallbackURL: req.MobileCallbackURL,
		})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPaymentMethod):
			l.Warn("checkout_error", "status", 400, "reason", "invalid payment method")
			return respondError(c, http.StatusBadRequest, "Invalid payment method.")
		case errors.Is(err, service.ErrEmptyCart):
			l.Warn("checkout_error", "status", 400, "reason", "empty cart")
			return respondError(c, http.StatusBadRequest, "Cart is empty.")
		case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrValidation):
			l.Warn("checkout_error", "status", 400, "reason", "validation", "error", err)
			return respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, gateway.ErrUnavailable):
			l.Warn("checkout_error", "status", 502, "reason", "gateway unavailable", "error", err)
			return respondError(c, http.StatusBadGateway,
				"Network error: Failed to initialize payment. Please try again.")
		case errors.Is(err, gateway.ErrRejected):
			l.Warn("checkout_error", "status", 400, "reason", "gateway rejected", "error", err)
			return respondError(c, http.StatusBadRequest, "Failed to initialize payment.")
		default:
			l.Error("checkout_error", "status", 500, "error", err)
			return respondError(c, http.StatusInternalServerError, "internal error")
		}
	}

	data := map[string]any{"order": result.Order}
	msg := "Order created successfully (Cash on Delivery)."
	if result.PaymentURL != "" {
		data["payment_reference"] = result.PaymentReference
		data["payment_url"] = result.PaymentURL
		msg = "Order created successfully. Please complete payment to finalize your order."
	}

	l.Info("checkout_success", "order_id", result.Order.ID)
	return respond(c, http.StatusCreated, msg, data)
}

type paymentInitRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

// InitPayment re-runs gateway initialization for an existing unpaid online
// order.
func (h *CheckoutHTTP) InitPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.init")

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req paymentInitRequest
	if err := c.Bind(&req); err != nil || req.OrderID == uuid.Nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}

	result, err := h.Svc.ReinitializePayment(ctx, service.User{ID: id.UserID, Email: id.Email}, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return respondError(c, http.StatusNotFound, "Order not found.")
		case errors.Is(err, service.ErrValidation):
			return respondError(c, http.StatusBadRequest, "Invalid order for payment.")
		case errors.Is(err, gateway.ErrUnavailable):
			return respondError(c, http.StatusBadGateway,
				"Network error: Failed to initialize payment. Please try again.")
		case errors.Is(err, gateway.ErrRejected):
			return respondError(c, http.StatusBadRequest, "Failed to initialize payment.")
		default:
			l.Error("payment_init_error", "error", err)
			return respondError(c, http.StatusInternalServerError, "internal error")
		}
	}

	return respond(c, http.StatusOK, "Payment initialized.", map[string]any{
		"payment_reference": result.PaymentReference,
		"payment_url":       result.PaymentURL,
	})
}
