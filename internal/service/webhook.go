package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/notify"
	"github.com/ogmarket/checkout/internal/repo"
	"github.com/ogmarket/checkout/pkg/logging"
)

// EventChargeSuccess is the only gateway event that settles an order.
const EventChargeSuccess = "charge.success"

type SettlementEvent struct {
	Event       string
	Reference   string
	AmountMinor int64
}

// SettlementService applies gateway webhook events to orders. Delivery is
// at-least-once from an untrusted caller, so every path here must be
// idempotent and amount-verified.
type SettlementService struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Notifier notify.Enqueuer
}

type settlementOutcome int

const (
	outcomeIgnored settlementOutcome = iota
	outcomeAlreadyPaid
	outcomeAmountMismatch
	outcomeSettled
)

// HandleSettlement processes one settlement event.
//
// Returns nil once the event is applied or deliberately ignored,
// ErrAmountMismatch when the order was marked failed for underpayment
// (redelivery cannot help), ErrNotFound for an unknown reference, and any
// other error when the transaction rolled back and the gateway should
// retry.
func (s *SettlementService) HandleSettlement(ctx context.Context, ev SettlementEvent) error {
	l := logging.FromContext(ctx).With("reference", ev.Reference)

	if ev.Event != EventChargeSuccess || ev.Reference == "" {
		l.Debug("ignoring webhook event", "event", ev.Event)
		return nil
	}

	var (
		outcome settlementOutcome
		order   *models.Order
		items   []models.OrderItem
	)

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.Repo.GetOrderByReferenceForUpdate(tx, ev.Reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order for reference %q", ErrNotFound, ev.Reference)
			}
			return err
		}
		order = o

		// Idempotency guard: a replayed event for a settled order is a no-op.
		if o.PaymentStatus == string(PaymentPaid) {
			outcome = outcomeAlreadyPaid
			return nil
		}

		if ev.AmountMinor < o.TotalMinor {
			outcome = outcomeAmountMismatch
			return tx.Model(o).Updates(map[string]any{
				"status":         string(StatusFailed),
				"payment_status": string(PaymentFailed),
			}).Error
		}

		now := time.Now().UTC()
		if err := tx.Model(o).Updates(map[string]any{
			"status":         string(StatusPaid),
			"payment_status": string(PaymentPaid),
			"paid_at":        now,
		}).Error; err != nil {
			return err
		}

		// Decrement stock from the OrderItems frozen at creation, not the
		// live cart: cart edits made while the customer was on the payment
		// page must not change what inventory is consumed.
		items, err = s.Repo.OrderItems(tx, o.ID)
		if err != nil {
			return err
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
			if !ok || p.Stock == nil {
				continue
			}
			if err := s.Repo.DecrementStock(tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		if err := s.Repo.ClearCart(tx, o.CustomerID); err != nil {
			return err
		}
		outcome = outcomeSettled
		return nil
	})
	if txErr != nil {
		return txErr
	}

	switch outcome {
	case outcomeAlreadyPaid:
		l.Info("settlement replayed, order already paid", "order_id", order.ID)
		return nil
	case outcomeAmountMismatch:
		l.Warn("settlement amount below order total",
			"order_id", order.ID, "amount_minor", ev.AmountMinor, "total_minor", order.TotalMinor)
		return fmt.Errorf("%w: got %d, want %d", ErrAmountMismatch, ev.AmountMinor, order.TotalMinor)
	}

	l.Info("order settled", "order_id", order.ID, "total_minor", order.TotalMinor)

	s.Notifier.Enqueue(notify.KindOrderConfirmation, order.ID, order.CustomerEmail, nil)
	for _, email := range distinctMerchants(items) {
		s.Notifier.Enqueue(notify.KindMerchantNewOrder, order.ID, email, nil)
	}
	return nil
}

func distinctMerchants(items []models.OrderItem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		if it.MerchantEmail == "" || seen[it.MerchantEmail] {
			continue
		}
		seen[it.MerchantEmail] = true
		out = append(out, it.MerchantEmail)
	}
	return out
}
