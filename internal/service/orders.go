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
)

type OrderService struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Notifier notify.Enqueuer
}

// StatusActor is who is asking for the transition. Merchant membership is
// derived from the order's items, not carried here.
type StatusActor struct {
	UserID  uuid.UUID
	IsStaff bool
}

func (s *OrderService) ListOrders(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, customerID, limit, offset)
}

// UpdateStatus applies a manual status transition under the order row lock.
// The transition table is always consulted; actor permissions are checked
// first so a forbidden request never reveals transition validity.
func (s *OrderService) UpdateStatus(ctx context.Context, actor StatusActor, orderID uuid.UUID, newStatus Status) (*models.Order, error) {
	if !staffStatuses[newStatus] {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	var (
		order *models.Order
		items []models.OrderItem
	)

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.Repo.GetOrderForUpdate(tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
			}
			return err
		}

		items, err = s.Repo.OrderItems(tx, o.ID)
		if err != nil {
			return err
		}

		isMerchant := false
		for _, it := range items {
			if it.MerchantID == actor.UserID {
				isMerchant = true
				break
			}
		}

		var role Actor
		switch {
		case isMerchant:
			role = ActorMerchant
		case actor.IsStaff:
			role = ActorStaff
		default:
			return fmt.Errorf("%w: not a merchant of this order or staff", ErrForbidden)
		}

		if !MayDrive(role, newStatus) {
			return fmt.Errorf("%w: merchants can only mark orders shipped, completed or cancelled", ErrForbidden)
		}
		if !CanTransition(Status(o.Status), newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, newStatus)
		}

		updates := map[string]any{"status": string(newStatus)}
		if newStatus == StatusPaid {
			updates["payment_status"] = string(PaymentPaid)
			updates["paid_at"] = time.Now().UTC()
		}
		if err := tx.Model(o).Updates(updates).Error; err != nil {
			return err
		}
		order = o
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.Notifier.Enqueue(notify.KindOrderStatusUpdate, order.ID, order.CustomerEmail,
		map[string]string{"status": order.Status})
	switch Status(order.Status) {
	case StatusShipped:
		s.Notifier.Enqueue(notify.KindOrderShipped, order.ID, order.CustomerEmail, nil)
	case StatusCompleted:
		s.Notifier.Enqueue(notify.KindOrderCompleted, order.ID, order.CustomerEmail, nil)
	case StatusCancelled:
		for _, email := range distinctMerchants(items) {
			s.Notifier.Enqueue(notify.KindMerchantOrderCancelled, order.ID, email, nil)
		}
	}

	return order, nil
}
