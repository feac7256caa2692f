package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/repo"
)

type CartService struct {
	Repo *repo.GormRepo
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) AddToCart(ctx context.Context, item *models.CartItem) error {
	if item.ProductID == uuid.Nil {
		return fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if _, err := s.Repo.GetProduct(ctx, item.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %s", ErrNotFound, item.ProductID)
		}
		return err
	}
	return s.Repo.AddToCart(ctx, item)
}

func (s *CartService) DeleteOneFromCart(ctx context.Context, productID, userID uuid.UUID) (bool, *models.CartItem, error) {
	if productID == uuid.Nil {
		return false, nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	deleted, item, err := s.Repo.DeleteOneFromCart(ctx, productID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, fmt.Errorf("%w: cart item", ErrNotFound)
	}
	return deleted, item, err
}

func (s *CartService) DeleteLineFromCart(ctx context.Context, productID, userID uuid.UUID) error {
	if productID == uuid.Nil {
		return fmt.Errorf("%w: product_id required", ErrValidation)
	}
	return s.Repo.DeleteLineFromCart(ctx, productID, userID)
}
