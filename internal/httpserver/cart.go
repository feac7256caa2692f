package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/service"
	"github.com/ogmarket/checkout/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	items, err := h.Svc.GetCart(ctx, id.UserID)
	if err != nil {
		logging.FromContext(ctx).Error("get_cart_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "internal error")
	}
	return respond(c, http.StatusOK, "Cart retrieved successfully.", items)
}

type addToCartRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}

	item := models.CartItem{
		UserID:    id.UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}
	if err := h.Svc.AddToCart(ctx, &item); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return respondError(c, http.StatusNotFound, "Product not found.")
		default:
			l.Error("add_to_cart_error", "error", err)
			return respondError(c, http.StatusInternalServerError, "internal error")
		}
	}
	return respond(c, http.StatusOK, "Item added to cart.", item)
}

func (h *CartHTTP) DeleteOneFromCart(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid product id")
	}

	deleted, item, err := h.Svc.DeleteOneFromCart(ctx, productID, id.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return respondError(c, http.StatusNotFound, "Cart item not found.")
		case errors.Is(err, service.ErrValidation):
			return respondError(c, http.StatusBadRequest, err.Error())
		default:
			logging.FromContext(ctx).Error("delete_one_error", "error", err)
			return respondError(c, http.StatusInternalServerError, "internal error")
		}
	}
	if deleted {
		return respond(c, http.StatusOK, "Cart item removed.", map[string]any{"deleted_product": productID})
	}
	return respond(c, http.StatusOK, "Cart item decremented.", item)
}

func (h *CartHTTP) DeleteLineFromCart(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid product id")
	}

	if err := h.Svc.DeleteLineFromCart(ctx, productID, id.UserID); err != nil {
		logging.FromContext(ctx).Error("delete_line_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "internal error")
	}

	remaining, err := h.Svc.GetCart(ctx, id.UserID)
	if err != nil {
		logging.FromContext(ctx).Error("cart read after delete failed", "error", err)
	}
	return respond(c, http.StatusOK, "Cart line removed.", remaining)
}
