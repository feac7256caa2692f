package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/models"
)

func (r *GormRepo) CreateOrder(tx *gorm.DB, order *models.Order) error {
	return tx.Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdate locks the order row; status mutation always happens
// under this lock.
func (r *GormRepo) GetOrderForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := withUpdateLock(tx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetOrderByReferenceForUpdate(tx *gorm.DB, reference string) (*models.Order, error) {
	var order models.Order
	if err := withUpdateLock(tx).First(&order, "payment_reference = ?", reference).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) OrderItems(tx *gorm.DB, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkOrderFailed is the small post-gateway-failure transaction: the order
// is marked failed without touching stock or the cart.
func (r *GormRepo) MarkOrderFailed(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": "failed", "payment_status": "failed"}).Error
}

func (r *GormRepo) SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_reference", reference).Error
}
