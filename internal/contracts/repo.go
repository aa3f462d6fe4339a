package contracts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/internal/repo"
	"github.com/voltride/voltride-backend/pkg/db/models"
)

// Repository defines persistence operations for contracts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contract *models.Contract) (*models.Contract, error)
	Find(ctx context.Context, contractID uuid.UUID) (*models.Contract, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Contract, error)
	Update(ctx context.Context, contractID uuid.UUID, updates map[string]any) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a contracts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
	if err := r.DB(ctx).Create(contract).Error; err != nil {
		return nil, err
	}
	return contract, nil
}

func (r *repository) Find(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.DB(ctx).
		Where("id = ?", contractID).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) Update(ctx context.Context, contractID uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.Contract{}).
		Where("id = ?", contractID).
		Updates(updates).Error
}
