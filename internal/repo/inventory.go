package repo

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/models"
)

// ErrStockConflict means a guarded decrement matched no row: either the
// product vanished or its stock dropped below the requested quantity.
var ErrStockConflict = errors.New("stock conflict")

// LockProducts acquires row locks on all given products in one query.
// IDs are sorted first so concurrent operations over overlapping product
// sets acquire locks in the same order. Must be called inside a transaction.
func (r *GormRepo) LockProducts(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	var products []models.Product
	if err := withUpdateLock(tx).
		Where("id IN ?", sorted).
		Order("id").
		Find(&products).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

// DecrementStock subtracts quantity as a single SQL arithmetic update,
// guarded so stock can never go negative even without the row lock.
// Callers skip products with nil (unlimited) stock.
func (r *GormRepo) DecrementStock(tx *gorm.DB, productID uuid.UUID, quantity int64) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}
