package fees

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type stubFeesRepo struct {
	fees     map[uuid.UUID]*models.ExtraFee
	feeTypes map[uuid.UUID]*models.FeeType
	orders   map[uuid.UUID]*models.RentalOrder
	settled  map[uuid.UUID]bool
}

func newStubFeesRepo() *stubFeesRepo {
	return &stubFeesRepo{
		fees:     map[uuid.UUID]*models.ExtraFee{},
		feeTypes: map[uuid.UUID]*models.FeeType{},
		orders:   map[uuid.UUID]*models.RentalOrder{},
		settled:  map[uuid.UUID]bool{},
	}
}

func (s *stubFeesRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubFeesRepo) CreateFee(ctx context.Context, fee *models.ExtraFee) (*models.ExtraFee, error) {
	if fee.ID == uuid.Nil {
		fee.ID = uuid.New()
	}
	s.fees[fee.ID] = fee
	return fee, nil
}

func (s *stubFeesRepo) FindFee(ctx context.Context, feeID uuid.UUID) (*models.ExtraFee, error) {
	fee, ok := s.fees[feeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *fee
	return &copied, nil
}

func (s *stubFeesRepo) DeleteFee(ctx context.Context, feeID uuid.UUID) error {
	delete(s.fees, feeID)
	return nil
}

func (s *stubFeesRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ExtraFee, error) {
	var out []models.ExtraFee
	for _, fee := range s.fees {
		if fee.OrderID == orderID {
			out = append(out, *fee)
		}
	}
	return out, nil
}

func (s *stubFeesRepo) SumByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var total int64
	for _, fee := range s.fees {
		if fee.OrderID == orderID {
			total += fee.Amount
		}
	}
	return total, nil
}

func (s *stubFeesRepo) FindFeeType(ctx context.Context, feeTypeID uuid.UUID) (*models.FeeType, error) {
	feeType, ok := s.feeTypes[feeTypeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *feeType
	return &copied, nil
}

func (s *stubFeesRepo) ListFeeTypes(ctx context.Context) ([]models.FeeType, error) {
	var out []models.FeeType
	for _, feeType := range s.feeTypes {
		out = append(out, *feeType)
	}
	return out, nil
}

func (s *stubFeesRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubFeesRepo) HasFinalPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.settled[orderID], nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type feesFixture struct {
	repo    *stubFeesRepo
	svc     Service
	order   *models.RentalOrder
	feeType *models.FeeType
}

func newFeesFixture(t *testing.T, status enums.OrderStatus) *feesFixture {
	t.Helper()
	repo := newStubFeesRepo()
	order := &models.RentalOrder{ID: uuid.New(), Status: status}
	feeType := &models.FeeType{ID: uuid.New(), Name: "Late return", DefaultAmount: 50000}
	repo.orders[order.ID] = order
	repo.feeTypes[feeType.ID] = feeType

	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &feesFixture{repo: repo, svc: svc, order: order, feeType: feeType}
}

func TestAddFeeUsesDefaultAmount(t *testing.T) {
	f := newFeesFixture(t, enums.OrderStatusInUse)

	fee, err := f.svc.Add(context.Background(), AddInput{
		OrderID:     f.order.ID,
		FeeTypeID:   f.feeType.ID,
		Description: "returned 2h late",
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	if fee.Amount != 50000 {
		t.Fatalf("expected default amount 50000, got %d", fee.Amount)
	}
}

func TestAddFeeOverridesAmount(t *testing.T) {
	f := newFeesFixture(t, enums.OrderStatusCompleted)
	amount := int64(75000)

	fee, err := f.svc.Add(context.Background(), AddInput{
		OrderID:     f.order.ID,
		FeeTypeID:   f.feeType.ID,
		Amount:      &amount,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	if fee.Amount != amount {
		t.Fatalf("expected override amount %d, got %d", amount, fee.Amount)
	}
}

func TestAddFeeBeforePickupConflicts(t *testing.T) {
	f := newFeesFixture(t, enums.OrderStatusApproved)

	_, err := f.svc.Add(context.Background(), AddInput{
		OrderID:     f.order.ID,
		FeeTypeID:   f.feeType.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict before pickup, got %v", err)
	}
}

func TestAddFeeStaffOnly(t *testing.T) {
	f := newFeesFixture(t, enums.OrderStatusInUse)

	_, err := f.svc.Add(context.Background(), AddInput{
		OrderID:     f.order.ID,
		FeeTypeID:   f.feeType.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleRenter,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for renter actor, got %v", err)
	}
}

func TestDeleteFeeBeforeSettlement(t *testing.T) {
	f := newFeesFixture(t, enums.OrderStatusInUse)

	fee, err := f.svc.Add(context.Background(), AddInput{
		OrderID:     f.order.ID,
		FeeTypeID:   f.feeType.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}

	err = f.svc.Delete(context.Background(), DeleteInput{
		FeeID:       fee.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if err != nil {
		t.Fatalf("delete fee: %v", err)
	}
	if len(f.repo.fees) != 0 {
		t.Fatalf("expected fee removed")
	}
}

func TestDeleteFeeFrozenAfterSettlement(t *testing.T) {
	f := newFeesFixture(t, enums.OrderStatusCompleted)

	fee, err := f.svc.Add(context.Background(), AddInput{
		OrderID:     f.order.ID,
		FeeTypeID:   f.feeType.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	f.repo.settled[f.order.ID] = true

	err = f.svc.Delete(context.Background(), DeleteInput{
		FeeID:       fee.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected frozen ledger conflict, got %v", err)
	}
	if len(f.repo.fees) != 1 {
		t.Fatalf("fee must remain after refused delete")
	}
}

func TestTotalForSumsLedger(t *testing.T) {
	f := newFeesFixture(t, enums.OrderStatusInUse)
	staff := uuid.New()

	for _, amount := range []int64{50000, 25000} {
		value := amount
		_, err := f.svc.Add(context.Background(), AddInput{
			OrderID:     f.order.ID,
			FeeTypeID:   f.feeType.ID,
			Amount:      &value,
			ActorUserID: staff,
			ActorRole:   enums.ActorRoleStaff,
		})
		if err != nil {
			t.Fatalf("add fee: %v", err)
		}
	}

	total, err := f.svc.TotalFor(context.Background(), nil, f.order.ID)
	if err != nil {
		t.Fatalf("total for: %v", err)
	}
	if total != 75000 {
		t.Fatalf("expected total 75000, got %d", total)
	}
}
