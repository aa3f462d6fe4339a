package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type stubContractsRepo struct {
	byID    map[uuid.UUID]*models.Contract
	byOrder map[uuid.UUID]*models.Contract
	updates []map[string]any
}

func newStubContractsRepo() *stubContractsRepo {
	return &stubContractsRepo{
		byID:    map[uuid.UUID]*models.Contract{},
		byOrder: map[uuid.UUID]*models.Contract{},
	}
}

func (s *stubContractsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubContractsRepo) Create(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	s.byID[contract.ID] = contract
	s.byOrder[contract.OrderID] = contract
	return contract, nil
}

func (s *stubContractsRepo) Find(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, ok := s.byID[contractID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *contract
	return &copied, nil
}

func (s *stubContractsRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Contract, error) {
	contract, ok := s.byOrder[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *contract
	return &copied, nil
}

func (s *stubContractsRepo) Update(ctx context.Context, contractID uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, updates)
	if contract, ok := s.byID[contractID]; ok {
		if url, ok := updates["document_url"].(string); ok {
			contract.DocumentURL = &url
		}
	}
	return nil
}

func TestCreateForHandover(t *testing.T) {
	repo := newStubContractsRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	orderID := uuid.New()
	staffID := uuid.New()
	signed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	contract, err := svc.CreateForHandover(context.Background(), nil, orderID, staffID, signed)
	if err != nil {
		t.Fatalf("create for handover: %v", err)
	}
	if contract.OrderID != orderID || contract.StaffID != staffID {
		t.Fatalf("contract not bound to order and staff")
	}
	if !contract.SignedDate.Equal(signed) {
		t.Fatalf("expected signed date preserved")
	}

	// Second creation for the same order must conflict.
	_, err = svc.CreateForHandover(context.Background(), nil, orderID, staffID, signed)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate contract, got %v", err)
	}
}

func TestUpdateDocumentURL(t *testing.T) {
	repo := newStubContractsRepo()
	svc, _ := NewService(repo)

	orderID := uuid.New()
	staffID := uuid.New()
	signed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	contract, err := svc.CreateForHandover(context.Background(), nil, orderID, staffID, signed)
	if err != nil {
		t.Fatalf("create for handover: %v", err)
	}

	updated, err := svc.UpdateDocumentURL(context.Background(), UpdateDocumentURLInput{
		ContractID:  contract.ID,
		DocumentURL: "https://cdn.example/contract.pdf",
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if err != nil {
		t.Fatalf("update document url: %v", err)
	}
	if updated.DocumentURL == nil || *updated.DocumentURL != "https://cdn.example/contract.pdf" {
		t.Fatalf("expected document url stored")
	}

	// Only the document url may change.
	if len(repo.updates) != 1 {
		t.Fatalf("expected a single update, got %d", len(repo.updates))
	}
	for key := range repo.updates[0] {
		if key != "document_url" {
			t.Fatalf("unexpected column update %q", key)
		}
	}
	if updated.StaffID != staffID || !updated.SignedDate.Equal(signed) {
		t.Fatalf("signed date and staff must be immutable")
	}
}

func TestUpdateDocumentURLGuards(t *testing.T) {
	repo := newStubContractsRepo()
	svc, _ := NewService(repo)

	_, err := svc.UpdateDocumentURL(context.Background(), UpdateDocumentURLInput{
		ContractID:  uuid.New(),
		DocumentURL: "https://cdn.example/contract.pdf",
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleRenter,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for renter actor, got %v", err)
	}

	_, err = svc.UpdateDocumentURL(context.Background(), UpdateDocumentURLInput{
		ContractID:  uuid.New(),
		DocumentURL: "https://cdn.example/contract.pdf",
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown contract, got %v", err)
	}
}

func TestGetByOrder(t *testing.T) {
	repo := newStubContractsRepo()
	svc, _ := NewService(repo)

	_, err := svc.GetByOrder(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
