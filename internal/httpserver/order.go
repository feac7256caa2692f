package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ogmarket/checkout/internal/service"
	"github.com/ogmarket/checkout/internal/util"
	"github.com/ogmarket/checkout/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	orders, err := h.Svc.ListOrders(ctx, id.UserID, limit, offset)
	if err != nil {
		logging.FromContext(ctx).Error("list_orders_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "internal error")
	}
	return respond(c, http.StatusOK, "Order list retrieved successfully.", orders)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return respondError(c, http.StatusBadRequest, "Missing status field.")
	}

	order, err := h.Svc.UpdateStatus(ctx,
		service.StatusActor{UserID: id.UserID, IsStaff: id.IsStaff},
		orderID, service.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return respondError(c, http.StatusNotFound, "Order not found.")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("update_status_error", "status", 403, "error", err)
			return respondError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrValidation):
			l.Warn("update_status_error", "status", 400, "error", err)
			return respondError(c, http.StatusBadRequest, err.Error())
		default:
			l.Error("update_status_error", "status", 500, "error", err)
			return respondError(c, http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("update_status_success", "order_id", order.ID, "new_status", order.Status)
	return respond(c, http.StatusOK, "Order status updated successfully.", order)
}
