package verification

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
)

// Repository defines persistence operations for renters and their
// identity documents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRenter(ctx context.Context, renterID uuid.UUID) (*models.Renter, error)
	FindRenterByUserID(ctx context.Context, userID uuid.UUID) (*models.Renter, error)
	UpdateRenter(ctx context.Context, renterID uuid.UUID, updates map[string]any) error
	CreateDocuments(ctx context.Context, docs []models.IdentityDocument) error
	FindDocument(ctx context.Context, documentID uuid.UUID) (*models.IdentityDocument, error)
	UpdateDocument(ctx context.Context, documentID uuid.UUID, updates map[string]any) error
	ListDocuments(ctx context.Context, renterID uuid.UUID) ([]models.IdentityDocument, error)
}
