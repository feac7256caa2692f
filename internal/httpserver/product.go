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

type ProductHTTP struct {
	Svc *service.CatalogService
}

func (h *ProductHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	id, err := identityFrom(c)
	if err != nil {
		return err
	}
	if !id.IsMerchant && !id.IsStaff {
		return respondError(c, http.StatusForbidden, "merchant account required")
	}

	var req service.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.CreateProduct(ctx, service.User{ID: id.UserID, Email: id.Email}, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return respondError(c, http.StatusBadRequest, err.Error())
		}
		l.Error("create_product_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "internal error")
	}
	return respond(c, http.StatusCreated, "Product created successfully.", p)
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid product id")
	}

	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return respondError(c, http.StatusNotFound, "Product not found.")
		}
		logging.FromContext(ctx).Error("get_product_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "internal error")
	}
	return respond(c, http.StatusOK, "Product retrieved successfully.", p)
}

func (h *ProductHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Svc.ListProducts(ctx, limit, offset)
	if err != nil {
		logging.FromContext(ctx).Error("list_products_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "internal error")
	}

	return respond(c, http.StatusOK, "Products retrieved successfully.", map[string]any{
		"items": items,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *ProductHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()

	q := c.QueryParam("q")
	if q == "" {
		return respondError(c, http.StatusBadRequest, "query required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Calculate(page, size)

	total, products, err := h.Svc.Search(ctx, q, from, limit)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return respondError(c, http.StatusBadRequest, err.Error())
		}
		logging.FromContext(ctx).Error("search_error", "error", err)
		return respondError(c, http.StatusInternalServerError, "internal error")
	}
	return respond(c, http.StatusOK, "Search completed.", map[string]any{
		"total":    total,
		"products": products,
	})
}
