package service

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/gateway"
	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/notify"
	"github.com/ogmarket/checkout/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one in-memory database per test, shared by all transactions
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{},
	))
	return db
}

type fakeGateway struct {
	err       error
	lastReq   gateway.InitRequest
	calls     int
	respURL   string
	respRef   string
	deriveRef bool
}

func (f *fakeGateway) InitializeTransaction(_ context.Context, req gateway.InitRequest) (*gateway.InitResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	ref := f.respRef
	if f.deriveRef || ref == "" {
		ref = "ps_" + req.Reference
	}
	url := f.respURL
	if url == "" {
		url = "https://pay.example/" + ref
	}
	return &gateway.InitResponse{Reference: ref, AuthorizationURL: url}, nil
}

type recordedNotification struct {
	Kind      notify.Kind
	OrderID   uuid.UUID
	Recipient string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (r *recordingNotifier) Enqueue(kind notify.Kind, orderID uuid.UUID, recipient string, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, recordedNotification{Kind: kind, OrderID: orderID, Recipient: recipient})
}

func (r *recordingNotifier) byKind(kind notify.Kind) []recordedNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedNotification
	for _, n := range r.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type testEnv struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Gateway  *fakeGateway
	Notifier *recordingNotifier
	Checkout *CheckoutService
	Settle   *SettlementService
	Orders   *OrderService
	Cart     *CartService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	r := &repo.GormRepo{DB: db}
	gw := &fakeGateway{}
	n := &recordingNotifier{}

	return &testEnv{
		DB:       db,
		Repo:     r,
		Gateway:  gw,
		Notifier: n,
		Checkout: &CheckoutService{DB: db, Repo: r, Gateway: gw, Notifier: n},
		Settle:   &SettlementService{DB: db, Repo: r, Notifier: n},
		Orders:   &OrderService{DB: db, Repo: r, Notifier: n},
		Cart:     &CartService{Repo: r},
	}
}

func int64p(v int64) *int64 { return &v }

func (env *testEnv) seedProduct(t *testing.T, name string, priceMinor int64, stock *int64, merchantEmail string) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:            uuid.New(),
		Name:          name,
		PriceMinor:    priceMinor,
		Stock:         stock,
		MerchantID:    uuid.New(),
		MerchantEmail: merchantEmail,
	}
	require.NoError(t, env.DB.Create(p).Error)
	return p
}

func (env *testEnv) seedCartItem(t *testing.T, userID uuid.UUID, productID uuid.UUID, qty int64) {
	t.Helper()
	require.NoError(t, env.DB.Create(&models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

func (env *testEnv) reloadProduct(t *testing.T, id uuid.UUID) *models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, env.DB.First(&p, "id = ?", id).Error)
	return &p
}

func (env *testEnv) reloadOrder(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, env.DB.Preload("Items").First(&o, "id = ?", id).Error)
	return &o
}

func (env *testEnv) cartCount(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}
