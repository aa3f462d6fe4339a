package verification

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/internal/repo"
	"github.com/voltride/voltride-backend/pkg/db/models"
)

type repository struct {
	repo.Base
}

// NewRepository builds a verification repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindRenter(ctx context.Context, renterID uuid.UUID) (*models.Renter, error) {
	var renter models.Renter
	err := r.DB(ctx).
		Where("id = ?", renterID).
		First(&renter).Error
	if err != nil {
		return nil, err
	}
	return &renter, nil
}

func (r *repository) FindRenterByUserID(ctx context.Context, userID uuid.UUID) (*models.Renter, error) {
	var renter models.Renter
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		First(&renter).Error
	if err != nil {
		return nil, err
	}
	return &renter, nil
}

func (r *repository) UpdateRenter(ctx context.Context, renterID uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.Renter{}).
		Where("id = ?", renterID).
		Updates(updates).Error
}

func (r *repository) CreateDocuments(ctx context.Context, docs []models.IdentityDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&docs).Error
}

func (r *repository) FindDocument(ctx context.Context, documentID uuid.UUID) (*models.IdentityDocument, error) {
	var doc models.IdentityDocument
	err := r.DB(ctx).
		Where("id = ?", documentID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) UpdateDocument(ctx context.Context, documentID uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.IdentityDocument{}).
		Where("id = ?", documentID).
		Updates(updates).Error
}

func (r *repository) ListDocuments(ctx context.Context, renterID uuid.UUID) ([]models.IdentityDocument, error) {
	var docs []models.IdentityDocument
	err := r.DB(ctx).
		Where("renter_id = ?", renterID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}
