package contracts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db"
	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

// Service binds handed-over orders to their one-to-one contract records.
type Service interface {
	CreateForHandover(ctx context.Context, tx *gorm.DB, orderID, staffID uuid.UUID, signedDate time.Time) (*models.Contract, error)
	UpdateDocumentURL(ctx context.Context, input UpdateDocumentURLInput) (*models.Contract, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Contract, error)
}

type service struct {
	repo Repository
}

// UpdateDocumentURLInput attaches a rendered document to an existing contract.
type UpdateDocumentURLInput struct {
	ContractID  uuid.UUID
	DocumentURL string
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// NewService builds a contracts service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	return &service{repo: repo}, nil
}

// CreateForHandover creates the order's contract, exactly once. The unique
// order_id constraint backs the pre-check, so a concurrent duplicate still
// surfaces as a conflict.
func (s *service) CreateForHandover(ctx context.Context, tx *gorm.DB, orderID, staffID uuid.UUID, signedDate time.Time) (*models.Contract, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}

	repo := s.repo.WithTx(tx)

	if _, err := repo.FindByOrder(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "contract already exists for order")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing contract")
	}

	contract := &models.Contract{
		OrderID:    orderID,
		StaffID:    staffID,
		SignedDate: signedDate,
	}
	if _, err := repo.Create(ctx, contract); err != nil {
		if db.IsUniqueViolation(err, "contracts_order_id_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "contract already exists for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contract")
	}
	return contract, nil
}

// UpdateDocumentURL attaches the rendered document. It never changes the
// signed date or the signing staff member.
func (s *service) UpdateDocumentURL(ctx context.Context, input UpdateDocumentURLInput) (*models.Contract, error) {
	if input.ContractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	if input.DocumentURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document url required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "contract updates are staff-only")
	}

	contract, err := s.repo.Find(ctx, input.ContractID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}

	if err := s.repo.Update(ctx, contract.ID, map[string]any{"document_url": input.DocumentURL}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contract document")
	}
	contract.DocumentURL = &input.DocumentURL
	return contract, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Contract, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	contract, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	return contract, nil
}
