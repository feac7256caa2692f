package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/gateway"
	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/notify"
	"github.com/ogmarket/checkout/internal/repo"
	"github.com/ogmarket/checkout/internal/service"
)

type testEnv struct {
	E    *echo.Echo
	DB   *gorm.DB
	Repo *repo.GormRepo

	Checkout *CheckoutHTTP
	Webhook  *WebhookHTTP
	Order    *OrderHTTP
	Cart     *CartHTTP
}

type okGateway struct{}

func (okGateway) InitializeTransaction(_ context.Context, req gateway.InitRequest) (*gateway.InitResponse, error) {
	return &gateway.InitResponse{
		Reference:        "ps_" + req.Reference,
		AuthorizationURL: "https://pay.example/" + req.Reference,
	}, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{},
	))

	r := &repo.GormRepo{DB: db}
	n := notify.Discard{}

	return &testEnv{
		E:    echo.New(),
		DB:   db,
		Repo: r,
		Checkout: &CheckoutHTTP{
			Svc: &service.CheckoutService{DB: db, Repo: r, Gateway: okGateway{}, Notifier: n},
		},
		Webhook: &WebhookHTTP{
			Svc: &service.SettlementService{DB: db, Repo: r, Notifier: n},
		},
		Order: &OrderHTTP{Svc: &service.OrderService{DB: db, Repo: r, Notifier: n}},
		Cart:  &CartHTTP{Svc: &service.CartService{Repo: r}},
	}
}

func (env *testEnv) doJSON(t *testing.T, method, path string, body any, id *Identity) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	if id != nil {
		c.Set(identityKey, id)
	}
	return rec, c
}

func (env *testEnv) seedOrderWithReference(t *testing.T, ref string, totalMinor int64) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:               uuid.New(),
		CustomerID:       uuid.New(),
		CustomerEmail:    "buyer@example.com",
		Status:           "pending",
		PaymentMethod:    "online",
		PaymentStatus:    "pending",
		TotalMinor:       totalMinor,
		PaymentReference: &ref,
	}
	require.NoError(t, env.DB.Create(o).Error)
	return o
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWebhookSettlesOrder(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrderWithReference(t, "ps_abc", 5000_00)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"event": "charge.success",
		"data":  map[string]any{"reference": "ps_abc", "amount": 5000_00},
	}, nil)
	require.NoError(t, env.Webhook.Handle(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeEnvelope(t, rec).Status)

	var got models.Order
	require.NoError(t, env.DB.First(&got, "id = ?", order.ID).Error)
	require.Equal(t, "paid", got.Status)
	require.Equal(t, "paid", got.PaymentStatus)
}

func TestWebhookUnknownReferenceAcknowledged(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"event": "charge.success",
		"data":  map[string]any{"reference": "ps_forged", "amount": 100},
	}, nil)
	require.NoError(t, env.Webhook.Handle(c))

	// forged or stale references are acknowledged so the gateway stops
	// redelivering
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeEnvelope(t, rec).Status)
}

func TestWebhookUnderpaymentAcknowledged(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrderWithReference(t, "ps_under", 5000_00)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"event": "charge.success",
		"data":  map[string]any{"reference": "ps_under", "amount": 100_00},
	}, nil)
	require.NoError(t, env.Webhook.Handle(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, env.DB.First(&got, "id = ?", order.ID).Error)
	require.Equal(t, "failed", got.Status)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrderWithReference(t, "ps_other", 5000_00)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"event": "transfer.success",
		"data":  map[string]any{"reference": "ps_other", "amount": 5000_00},
	}, nil)
	require.NoError(t, env.Webhook.Handle(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, env.DB.First(&got, "id = ?", order.ID).Error)
	require.Equal(t, "pending", got.Status)
}

func TestCheckoutHandlerEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	id := &Identity{UserID: uuid.New(), Email: "buyer@example.com"}

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/checkout",
		map[string]any{"payment_method": "cash_on_delivery"}, id)
	require.NoError(t, env.Checkout.Checkout(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Cart is empty.", decodeEnvelope(t, rec).Message)
}

func TestCheckoutHandlerInvalidMethod(t *testing.T) {
	env := newTestEnv(t)
	id := &Identity{UserID: uuid.New(), Email: "buyer@example.com"}

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/checkout",
		map[string]any{"payment_method": "gold"}, id)
	require.NoError(t, env.Checkout.Checkout(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid payment method.", decodeEnvelope(t, rec).Message)
}

func TestCheckoutHandlerOnline(t *testing.T) {
	env := newTestEnv(t)
	id := &Identity{UserID: uuid.New(), Email: "buyer@example.com"}

	stock := int64(5)
	p := &models.Product{
		ID: uuid.New(), Name: "gamepad", PriceMinor: 1500_00, Stock: &stock,
		MerchantID: uuid.New(), MerchantEmail: "merchant@example.com",
	}
	require.NoError(t, env.DB.Create(p).Error)
	require.NoError(t, env.DB.Create(&models.CartItem{
		UserID: id.UserID, ProductID: p.ID, Quantity: 2,
	}).Error)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/checkout",
		map[string]any{"payment_method": "online"}, id)
	require.NoError(t, env.Checkout.Checkout(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Status)
	data := resp.Data.(map[string]any)
	require.NotEmpty(t, data["payment_url"])
	require.NotEmpty(t, data["payment_reference"])
}

func TestStatusUpdateHandlerForbidden(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrderWithReference(t, "ps_st", 100_00)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/status",
		map[string]any{"status": "shipped"},
		&Identity{UserID: uuid.New(), Email: "stranger@example.com"})
	c.SetParamNames("id")
	c.SetParamValues(order.ID.String())

	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusUpdateHandlerInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrderWithReference(t, "ps_tr", 100_00)
	require.NoError(t, env.DB.Model(order).Update("status", "shipped").Error)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/status",
		map[string]any{"status": "pending"},
		&Identity{UserID: uuid.New(), Email: "staff@example.com", IsStaff: true})
	c.SetParamNames("id")
	c.SetParamValues(order.ID.String())

	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHandlerRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	id := &Identity{UserID: uuid.New(), Email: "buyer@example.com"}

	stock := int64(10)
	p := &models.Product{
		ID: uuid.New(), Name: "gamepad", PriceMinor: 1500_00, Stock: &stock,
		MerchantID: uuid.New(), MerchantEmail: "merchant@example.com",
	}
	require.NoError(t, env.DB.Create(p).Error)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart",
		map[string]any{"product_id": p.ID, "quantity": 2}, id)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// same product again merges quantities
	rec, c = env.doJSON(t, http.MethodPost, "/api/v1/cart",
		map[string]any{"product_id": p.ID, "quantity": 1}, id)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSON(t, http.MethodGet, "/api/v1/cart", nil, id)
	require.NoError(t, env.Cart.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	items := resp.Data.([]any)
	require.Len(t, items, 1)
	require.Equal(t, float64(3), items[0].(map[string]any)["quantity"])
}

func TestGetIdentityFromToken(t *testing.T) {
	secret := []byte("test-secret")
	userID := uuid.New()

	claims := jwtClaimsForTest(userID, "buyer@example.com", "merchant")
	token := signTestToken(t, claims, secret)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	c := e.NewContext(req, httptest.NewRecorder())

	id, err := GetIdentity(c, secret)
	require.NoError(t, err)
	require.Equal(t, userID, id.UserID)
	require.Equal(t, "buyer@example.com", id.Email)
	require.True(t, id.IsMerchant)
	require.False(t, id.IsStaff)

	// wrong secret is rejected
	_, err = GetIdentity(c, []byte("other-secret"))
	require.Error(t, err)
}

func TestGetIdentityMissingCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	_, err := GetIdentity(c, []byte("secret"))
	require.Error(t, err)
}

func jwtClaimsForTest(userID uuid.UUID, email, role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func signTestToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}
