package generation

import (
	"clipify-backend/domain"
	"clipify-backend/entities"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	GenerationRepository interface {
		Create(ctx context.Context, gen *entities.Generation) error
		GetByID(ctx context.Context, id string) (*entities.Generation, error)
		GetUserGenerations(ctx context.Context, userID string, page, limit int) ([]*entities.Generation, int64, error)
		MarkCompleted(ctx context.Context, id uuid.UUID, outputURL, outputKey string, costMxn, costUsd decimal.Decimal, completedAt time.Time) (bool, error)
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, completedAt time.Time) (bool, error)
	}

	generationRepository struct {
		db *gorm.DB
	}
)

func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &generationRepository{
		db: db,
	}
}

func (r *generationRepository) Create(ctx context.Context, gen *entities.Generation) error {
	return r.db.WithContext(ctx).Create(gen).Error
}

func (r *generationRepository) GetByID(ctx context.Context, id string) (*entities.Generation, error) {
	var gen entities.Generation
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&gen).Error; err != nil {
		return nil, err
	}
	return &gen, nil
}

func (r *generationRepository) GetUserGenerations(ctx context.Context, userID string, page, limit int) ([]*entities.Generation, int64, error) {
	var generations []*entities.Generation
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.Generation{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&generations).Error; err != nil {
		return nil, 0, err
	}

	return generations, count, nil
}

// MarkCompleted transitions Pending -> Completed. The status predicate is part
// of the UPDATE itself, so a record that is already terminal is never touched;
// the false return tells the caller the transition did not happen.
func (r *generationRepository) MarkCompleted(ctx context.Context, id uuid.UUID, outputURL, outputKey string, costMxn, costUsd decimal.Decimal, completedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.Generation{}).
		Where("id = ? AND status = ?", id, domain.GenStatusPending).
		Updates(map[string]any{
			"status":            domain.GenStatusCompleted,
			"output_url":        outputURL,
			"output_key":        outputKey,
			"realized_cost_mxn": costMxn,
			"realized_cost_usd": costUsd,
			"completed_at":      completedAt,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *generationRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, completedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.Generation{}).
		Where("id = ? AND status = ?", id, domain.GenStatusPending).
		Updates(map[string]any{
			"status":        domain.GenStatusFailed,
			"error_message": errorMessage,
			"completed_at":  completedAt,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
