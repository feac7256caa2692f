package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/gateway"
	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/notify"
	"github.com/ogmarket/checkout/internal/repo"
	"github.com/ogmarket/checkout/pkg/logging"
)

type User struct {
	ID    uuid.UUID
	Email string
}

type CheckoutRequest struct {
	Method PaymentMethod
	// MobileCallbackURL overrides the configured gateway callback; only
	// meaningful for online payment.
	MobileCallbackURL string
}

type CheckoutResult struct {
	Order            *models.Order
	PaymentReference string
	PaymentURL       string
}

type CheckoutService struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Gateway  gateway.Initializer
	Notifier notify.Enqueuer
}

// Checkout converts the user's cart into an order.
//
// cash_on_delivery settles immediately: stock is decremented and the cart
// cleared in the same transaction that creates the order. online creates
// the order only; stock and cart stay untouched until the gateway confirms
// payment via webhook, so abandoned checkouts cannot consume inventory.
// The gateway call happens strictly outside the creation transaction.
func (s *CheckoutService) Checkout(ctx context.Context, user User, req CheckoutRequest) (*CheckoutResult, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.Method)
	}

	var (
		order          *models.Order
		merchantEmails map[string]bool
	)

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.Repo.CartItems(tx, user.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		locked, err := s.Repo.LockProducts(tx, ids)
		if err != nil {
			return err
		}

		for _, it := range items {
			p, ok := locked[it.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %s not found", ErrValidation, it.ProductID)
			}
			if p.Stock != nil && it.Quantity > *p.Stock {
				return fmt.Errorf("%w for product %q", ErrInsufficientStock, p.Name)
			}
		}

		order = &models.Order{
			ID:            uuid.New(),
			CustomerID:    user.ID,
			CustomerEmail: user.Email,
			Status:        string(StatusPending),
			PaymentMethod: string(req.Method),
			PaymentStatus: string(PaymentPending),
		}
		merchantEmails = make(map[string]bool)

		for _, it := range items {
			p := locked[it.ProductID]
			order.Items = append(order.Items, models.OrderItem{
				ProductID:     p.ID,
				MerchantID:    p.MerchantID,
				MerchantEmail: p.MerchantEmail,
				Quantity:      it.Quantity,
				PriceMinor:    p.PriceMinor,
			})
			order.TotalMinor += p.PriceMinor * it.Quantity
			if p.MerchantEmail != "" {
				merchantEmails[p.MerchantEmail] = true
			}
		}

		if err := s.Repo.CreateOrder(tx, order); err != nil {
			return err
		}

		if req.Method != MethodCashOnDelivery {
			return nil
		}

		for _, it := range items {
			p := locked[it.ProductID]
			if p.Stock == nil {
				continue
			}
			if err := s.Repo.DecrementStock(tx, p.ID, it.Quantity); err != nil {
				if errors.Is(err, repo.ErrStockConflict) {
					return fmt.Errorf("%w for product %q", ErrInsufficientStock, p.Name)
				}
				return err
			}
		}
		return s.Repo.ClearCart(tx, user.ID)
	})
	if txErr != nil {
		return nil, txErr
	}

	l := logging.FromContext(ctx).With("order_id", order.ID)

	if req.Method == MethodCashOnDelivery {
		l.Info("checkout settled", "payment_method", req.Method, "total_minor", order.TotalMinor)
		s.Notifier.Enqueue(notify.KindOrderConfirmation, order.ID, user.Email, nil)
		for email := range merchantEmails {
			s.Notifier.Enqueue(notify.KindMerchantNewOrder, order.ID, email, nil)
		}
		return &CheckoutResult{Order: order}, nil
	}

	return s.initializePayment(ctx, order, user.Email, req.MobileCallbackURL)
}

// initializePayment runs the out-of-transaction gateway call for an online
// order and records the outcome in short follow-up writes.
func (s *CheckoutService) initializePayment(ctx context.Context, order *models.Order, email, callbackURL string) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("order_id", order.ID)

	resp, err := s.Gateway.InitializeTransaction(ctx, gateway.InitRequest{
		AmountMinor: order.TotalMinor,
		Email:       email,
		Reference:   order.ID.String(),
		CallbackURL: callbackURL,
		Metadata:    map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		l.Warn("payment initialization failed", "error", err)
		if markErr := s.Repo.MarkOrderFailed(ctx, order.ID); markErr != nil {
			l.Error("failed to mark order failed", "error", markErr)
		}
		order.Status = string(StatusFailed)
		order.PaymentStatus = string(PaymentFailed)
		return nil, err
	}

	if err := s.Repo.SetPaymentReference(ctx, order.ID, resp.Reference); err != nil {
		return nil, err
	}
	order.PaymentReference = &resp.Reference

	l.Info("payment initialized", "reference", resp.Reference)
	return &CheckoutResult{
		Order:            order,
		PaymentReference: resp.Reference,
		PaymentURL:       resp.AuthorizationURL,
	}, nil
}

// ReinitializePayment re-runs gateway initialization for an existing
// unpaid online order, e.g. after the customer abandoned the payment page.
func (s *CheckoutService) ReinitializePayment(ctx context.Context, user User, orderID uuid.UUID) (*CheckoutResult, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.CustomerID != user.ID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if order.PaymentMethod != string(MethodOnline) || order.PaymentStatus == string(PaymentPaid) {
		return nil, fmt.Errorf("%w: invalid order for payment", ErrValidation)
	}

	resp, err := s.Gateway.InitializeTransaction(ctx, gateway.InitRequest{
		AmountMinor: order.TotalMinor,
		Email:       order.CustomerEmail,
		Reference:   order.ID.String(),
		Metadata:    map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, err
	}

	if err := s.Repo.SetPaymentReference(ctx, order.ID, resp.Reference); err != nil {
		return nil, err
	}
	order.PaymentReference = &resp.Reference

	return &CheckoutResult{
		Order:            order,
		PaymentReference: resp.Reference,
		PaymentURL:       resp.AuthorizationURL,
	}, nil
}
