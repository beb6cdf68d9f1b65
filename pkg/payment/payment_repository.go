package payment

import (
	"clipify-backend/entities"
	"context"

	"gorm.io/gorm"
)

type (
	PaymentRepository interface {
		CreateOrder(ctx context.Context, order *entities.PaymentOrder) error
		GetOrderByOrderID(ctx context.Context, orderID string) (*entities.PaymentOrder, error)
	}

	paymentRepository struct {
		db *gorm.DB
	}
)

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{
		db: db,
	}
}

func (r *paymentRepository) CreateOrder(ctx context.Context, order *entities.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *paymentRepository) GetOrderByOrderID(ctx context.Context, orderID string) (*entities.PaymentOrder, error) {
	var order entities.PaymentOrder
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
