package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service gates booking eligibility on identity-document review.
type Service interface {
	IsEligible(ctx context.Context, renterID uuid.UUID) (bool, error)
	SubmitDocuments(ctx context.Context, input SubmitDocumentsInput) ([]models.IdentityDocument, error)
	ReviewDocument(ctx context.Context, input ReviewDocumentInput) error
	Profile(ctx context.Context, renterID uuid.UUID) (*models.Renter, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// DocumentInput is one identity artifact submitted for review.
type DocumentInput struct {
	Kind string
	URL  string
}

// SubmitDocumentsInput carries a renter's document re-submission.
type SubmitDocumentsInput struct {
	RenterID  uuid.UUID
	Documents []DocumentInput
}

// ReviewDocumentInput captures a staff decision on a pending document.
type ReviewDocumentInput struct {
	DocumentID  uuid.UUID
	Approve     bool
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// NewService builds a verification service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

// IsEligible reports whether the renter may hold a booking right now.
// Eligibility is a single boolean read of the derived verified flag.
func (s *service) IsEligible(ctx context.Context, renterID uuid.UUID) (bool, error) {
	if renterID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "renter id required")
	}

	renter, err := s.repo.FindRenter(ctx, renterID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "renter not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load renter")
	}
	return renter.IsVerified, nil
}

// SubmitDocuments appends the submitted artifacts and flips the renter back
// to unverified until staff review the new set.
func (s *service) SubmitDocuments(ctx context.Context, input SubmitDocumentsInput) ([]models.IdentityDocument, error) {
	if input.RenterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "renter id required")
	}
	if len(input.Documents) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one document required")
	}
	for _, doc := range input.Documents {
		if doc.Kind == "" || doc.URL == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "document kind and url required")
		}
	}

	docs := make([]models.IdentityDocument, 0, len(input.Documents))
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindRenter(ctx, input.RenterID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "renter not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load renter")
		}

		for _, in := range input.Documents {
			docs = append(docs, models.IdentityDocument{
				RenterID: input.RenterID,
				Kind:     in.Kind,
				URL:      in.URL,
				Status:   enums.DocumentStatusPending,
			})
		}
		if err := repo.CreateDocuments(ctx, docs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create identity documents")
		}

		// Re-submission always revokes eligibility until re-approved.
		if err := repo.UpdateRenter(ctx, input.RenterID, map[string]any{"is_verified": false}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke verification")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ReviewDocument records a staff decision. Approval is the only path that
// sets the renter verified; rejection revokes it.
func (s *service) ReviewDocument(ctx context.Context, input ReviewDocumentInput) error {
	if input.DocumentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "document id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "document review is staff-only")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		doc, err := repo.FindDocument(ctx, input.DocumentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document")
		}
		if doc.Status != enums.DocumentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "document already reviewed")
		}

		status := enums.DocumentStatusRejected
		if input.Approve {
			status = enums.DocumentStatusApproved
		}
		now := s.now().UTC()
		err = repo.UpdateDocument(ctx, doc.ID, map[string]any{
			"status":      status,
			"reviewed_by": input.ActorUserID,
			"reviewed_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update document review")
		}

		if err := repo.UpdateRenter(ctx, doc.RenterID, map[string]any{"is_verified": input.Approve}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update renter verification")
		}
		return nil
	})
}

// Profile returns the renter with their submitted documents.
func (s *service) Profile(ctx context.Context, renterID uuid.UUID) (*models.Renter, error) {
	if renterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "renter id required")
	}

	renter, err := s.repo.FindRenter(ctx, renterID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "renter not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load renter")
	}

	docs, err := s.repo.ListDocuments(ctx, renterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list documents")
	}
	renter.Documents = docs
	return renter, nil
}
