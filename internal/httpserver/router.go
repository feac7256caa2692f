package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	CheckoutHandler *CheckoutHTTP
	WebhookHandler  *WebhookHTTP
	OrderHandler    *OrderHTTP
	CartHandler     *CartHTTP
	ProductHandler  *ProductHTTP
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	// Gateway callbacks carry no user session.
	v1.POST("/payments/webhook", d.WebhookHandler.Handle)

	v1.GET("/products", d.ProductHandler.GetProducts)
	v1.GET("/products/:id", d.ProductHandler.GetProduct)
	v1.GET("/search", d.ProductHandler.Search)

	authMW := RequireAuth(d.JWTSecret)

	v1.POST("/products", d.ProductHandler.CreateProduct, authMW)

	cart := v1.Group("/cart", authMW)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("/:product_id", d.CartHandler.DeleteOneFromCart)
	cart.DELETE("/:product_id/all", d.CartHandler.DeleteLineFromCart)

	v1.POST("/checkout", d.CheckoutHandler.Checkout, authMW)
	v1.POST("/payments/init", d.CheckoutHandler.InitPayment, authMW)

	orders := v1.Group("/orders", authMW)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.POST("/:id/status", d.OrderHandler.UpdateStatus)
}
