package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type stubPaymentsRepo struct {
	payments map[string]*models.Payment // keyed by external ref
	orders   map[uuid.UUID]*models.RentalOrder
	rates    map[uuid.UUID]int64
	settles  int
}

func newStubPaymentsRepo() *stubPaymentsRepo {
	return &stubPaymentsRepo{
		payments: map[string]*models.Payment{},
		orders:   map[uuid.UUID]*models.RentalOrder{},
		rates:    map[uuid.UUID]int64{},
	}
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPaymentsRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.payments[payment.ExternalRef] = payment
	return payment, nil
}

func (s *stubPaymentsRepo) FindByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error) {
	payment, ok := s.payments[externalRef]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payment
	return &copied, nil
}

func (s *stubPaymentsRepo) FindDepositByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	for _, payment := range s.payments {
		if payment.OrderID == orderID && payment.Kind == enums.PaymentKindDeposit {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) PaidDepositTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var total int64
	for _, payment := range s.payments {
		if payment.OrderID == orderID && payment.Kind == enums.PaymentKindDeposit && payment.Status == enums.PaymentStatusPaid {
			total += payment.Amount
		}
	}
	return total, nil
}

func (s *stubPaymentsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, payment := range s.payments {
		if payment.OrderID == orderID {
			out = append(out, *payment)
		}
	}
	return out, nil
}

func (s *stubPaymentsRepo) SettleIfUnpaid(ctx context.Context, externalRef string, settledAt time.Time) (bool, error) {
	payment, ok := s.payments[externalRef]
	if !ok || payment.Status != enums.PaymentStatusUnpaid {
		return false, nil
	}
	payment.Status = enums.PaymentStatusPaid
	payment.SettledAt = &settledAt
	s.settles++
	return true, nil
}

func (s *stubPaymentsRepo) RefundIfPaid(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	for _, payment := range s.payments {
		if payment.ID == paymentID {
			if payment.Status != enums.PaymentStatusPaid {
				return false, nil
			}
			payment.Status = enums.PaymentStatusRefunded
			return true, nil
		}
	}
	return false, nil
}

func (s *stubPaymentsRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubPaymentsRepo) VehicleRatePerHour(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	return s.rates[vehicleID], nil
}

type stubGateway struct {
	refs       int
	signature  string
	refundErr  error
	refundRefs []string
	refundAmts []int64
}

func (s *stubGateway) NewExternalRef() string {
	s.refs++
	return fmt.Sprintf("ref-%d", s.refs)
}

func (s *stubGateway) BuildRedirectURL(externalRef string, amount int64, orderID uuid.UUID) (string, error) {
	return fmt.Sprintf("https://pay.example/checkout?ref=%s&amount=%d", externalRef, amount), nil
}

func (s *stubGateway) VerifySignature(externalRef string, amount int64, signature string) bool {
	return signature == s.signature
}

func (s *stubGateway) Refund(ctx context.Context, externalRef string, amount int64) error {
	if s.refundErr != nil {
		return s.refundErr
	}
	s.refundRefs = append(s.refundRefs, externalRef)
	s.refundAmts = append(s.refundAmts, amount)
	return nil
}

type stubFeeTotaler struct {
	total int64
}

func (s stubFeeTotaler) TotalFor(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	return s.total, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type paymentsFixture struct {
	repo    *stubPaymentsRepo
	gateway *stubGateway
	fees    *stubFeeTotaler
	svc     Service
	order   *models.RentalOrder
}

func newPaymentsFixture(t *testing.T, status enums.OrderStatus) *paymentsFixture {
	t.Helper()
	repo := newStubPaymentsRepo()
	gatewayStub := &stubGateway{signature: "valid-sig"}
	fees := &stubFeeTotaler{}

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	order := &models.RentalOrder{
		ID:        uuid.New(),
		RenterID:  uuid.New(),
		VehicleID: uuid.New(),
		StartTime: start,
		EndTime:   start.Add(4 * time.Hour),
		Status:    status,
		Version:   1,
	}
	repo.orders[order.ID] = order
	repo.rates[order.VehicleID] = 100000 // per hour

	svc, err := NewService(repo, stubTxRunner{}, gatewayStub, fees, 30)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &paymentsFixture{repo: repo, gateway: gatewayStub, fees: fees, svc: svc, order: order}
}

func (f *paymentsFixture) depositInput() DepositRequestInput {
	return DepositRequestInput{
		OrderID:     f.order.ID,
		RenterID:    &f.order.RenterID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleRenter,
	}
}

func TestCreateDepositRequest(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)

	request, err := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	if err != nil {
		t.Fatalf("create deposit request: %v", err)
	}

	// 30% of 4h x 100000.
	if request.Payment.Amount != 120000 {
		t.Fatalf("expected deposit 120000, got %d", request.Payment.Amount)
	}
	if request.Payment.Kind != enums.PaymentKindDeposit || request.Payment.Status != enums.PaymentStatusUnpaid {
		t.Fatalf("expected unpaid deposit row")
	}
	if request.RedirectURL == "" {
		t.Fatalf("expected redirect url")
	}
}

func TestCreateDepositRequestReusesUnpaidRow(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)

	first, err := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	if err != nil {
		t.Fatalf("create deposit request: %v", err)
	}
	second, err := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	if err != nil {
		t.Fatalf("create deposit request: %v", err)
	}
	if first.Payment.ExternalRef != second.Payment.ExternalRef {
		t.Fatalf("expected stable external reference across retries")
	}
	if len(f.repo.payments) != 1 {
		t.Fatalf("expected a single deposit row, got %d", len(f.repo.payments))
	}
}

func TestCreateDepositRequestGuards(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusInUse)

	_, err := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict after pickup, got %v", err)
	}

	f = newPaymentsFixture(t, enums.OrderStatusBooked)
	stranger := uuid.New()
	input := f.depositInput()
	input.RenterID = &stranger
	_, err = f.svc.CreateDepositRequest(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for foreign renter, got %v", err)
	}
}

func TestHandleSettlementNotification(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)
	request, err := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	if err != nil {
		t.Fatalf("create deposit request: %v", err)
	}

	ack, err := f.svc.HandleSettlementNotification(context.Background(), SettlementInput{
		ExternalRef: request.Payment.ExternalRef,
		Amount:      request.Payment.Amount,
		Signature:   "valid-sig",
	})
	if err != nil {
		t.Fatalf("handle settlement: %v", err)
	}
	if ack.Status != enums.PaymentStatusPaid || ack.AlreadySettled {
		t.Fatalf("expected fresh settlement ack, got %+v", ack)
	}

	stored := f.repo.payments[request.Payment.ExternalRef]
	if stored.Status != enums.PaymentStatusPaid || stored.SettledAt == nil {
		t.Fatalf("expected payment marked paid with settled timestamp")
	}
}

func TestHandleSettlementNotificationIsIdempotent(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)
	request, _ := f.svc.CreateDepositRequest(context.Background(), f.depositInput())

	input := SettlementInput{
		ExternalRef: request.Payment.ExternalRef,
		Amount:      request.Payment.Amount,
		Signature:   "valid-sig",
	}
	if _, err := f.svc.HandleSettlementNotification(context.Background(), input); err != nil {
		t.Fatalf("first settlement: %v", err)
	}

	ack, err := f.svc.HandleSettlementNotification(context.Background(), input)
	if err != nil {
		t.Fatalf("duplicate settlement: %v", err)
	}
	if !ack.AlreadySettled || ack.Status != enums.PaymentStatusPaid {
		t.Fatalf("duplicate must acknowledge without reprocessing, got %+v", ack)
	}
	if f.repo.settles != 1 {
		t.Fatalf("expected exactly one settle write, got %d", f.repo.settles)
	}
}

func TestHandleSettlementNotificationRejections(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)
	request, _ := f.svc.CreateDepositRequest(context.Background(), f.depositInput())

	// Unknown reference.
	_, err := f.svc.HandleSettlementNotification(context.Background(), SettlementInput{
		ExternalRef: "no-such-ref",
		Amount:      request.Payment.Amount,
		Signature:   "valid-sig",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error for unknown ref, got %v", err)
	}

	// Bad signature.
	_, err = f.svc.HandleSettlementNotification(context.Background(), SettlementInput{
		ExternalRef: request.Payment.ExternalRef,
		Amount:      request.Payment.Amount,
		Signature:   "forged",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error for bad signature, got %v", err)
	}

	// Amount mismatch.
	_, err = f.svc.HandleSettlementNotification(context.Background(), SettlementInput{
		ExternalRef: request.Payment.ExternalRef,
		Amount:      request.Payment.Amount + 1,
		Signature:   "valid-sig",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error for amount mismatch, got %v", err)
	}

	// Nothing may have been mutated.
	stored := f.repo.payments[request.Payment.ExternalRef]
	if stored.Status != enums.PaymentStatusUnpaid {
		t.Fatalf("rejected notifications must not mutate the payment")
	}
}

func TestHandleUserReturnIsReadOnly(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)
	request, _ := f.svc.CreateDepositRequest(context.Background(), f.depositInput())

	payment, err := f.svc.HandleUserReturn(context.Background(), request.Payment.ExternalRef)
	if err != nil {
		t.Fatalf("handle user return: %v", err)
	}
	if payment.Status != enums.PaymentStatusUnpaid {
		t.Fatalf("browser return must report the stored state")
	}
	if f.repo.settles != 0 {
		t.Fatalf("browser return must never settle")
	}
}

func TestCreateRefund(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)
	request, _ := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	_, err := f.svc.HandleSettlementNotification(context.Background(), SettlementInput{
		ExternalRef: request.Payment.ExternalRef,
		Amount:      request.Payment.Amount,
		Signature:   "valid-sig",
	})
	if err != nil {
		t.Fatalf("settle deposit: %v", err)
	}
	f.order.Status = enums.OrderStatusCancelled
	f.repo.orders[f.order.ID] = f.order

	refunded, err := f.svc.CreateRefund(context.Background(), RefundInput{
		OrderID:     f.order.ID,
		Amount:      request.Payment.Amount,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if err != nil {
		t.Fatalf("create refund: %v", err)
	}
	if refunded.Status != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded deposit, got %s", refunded.Status)
	}
	if len(f.gateway.refundRefs) != 1 || f.gateway.refundRefs[0] != request.Payment.ExternalRef {
		t.Fatalf("expected one gateway refund for %s, got %v", request.Payment.ExternalRef, f.gateway.refundRefs)
	}
	if f.gateway.refundAmts[0] != request.Payment.Amount {
		t.Fatalf("expected gateway refund of %d, got %d", request.Payment.Amount, f.gateway.refundAmts[0])
	}

	// A second refund must conflict.
	_, err = f.svc.CreateRefund(context.Background(), RefundInput{
		OrderID:     f.order.ID,
		Amount:      request.Payment.Amount,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected conflict refunding twice, got %v", err)
	}
	if len(f.gateway.refundRefs) != 1 {
		t.Fatalf("conflicting refund must not reach the gateway, got %d calls", len(f.gateway.refundRefs))
	}
}

func TestCreateRefundGatewayDeclined(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)
	request, _ := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	_, err := f.svc.HandleSettlementNotification(context.Background(), SettlementInput{
		ExternalRef: request.Payment.ExternalRef,
		Amount:      request.Payment.Amount,
		Signature:   "valid-sig",
	})
	if err != nil {
		t.Fatalf("settle deposit: %v", err)
	}
	f.order.Status = enums.OrderStatusCancelled
	f.repo.orders[f.order.ID] = f.order
	f.gateway.refundErr = fmt.Errorf("gateway unavailable")

	_, err = f.svc.CreateRefund(context.Background(), RefundInput{
		OrderID:     f.order.ID,
		Amount:      request.Payment.Amount,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}

	// The deposit must stay PAID when the gateway never confirmed.
	deposit, err := f.repo.FindDepositByOrder(context.Background(), f.order.ID)
	if err != nil {
		t.Fatalf("reload deposit: %v", err)
	}
	if deposit.Status != enums.PaymentStatusPaid {
		t.Fatalf("expected deposit to remain paid, got %s", deposit.Status)
	}
}

func TestCreateRefundGuards(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusApproved)

	_, err := f.svc.CreateRefund(context.Background(), RefundInput{
		OrderID:     f.order.ID,
		Amount:      1000,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected conflict for active order, got %v", err)
	}

	f.order.Status = enums.OrderStatusCancelled
	_, err = f.svc.CreateRefund(context.Background(), RefundInput{
		OrderID:     f.order.ID,
		Amount:      1000,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleRenter,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for renter actor, got %v", err)
	}
}

func TestSettleFinalComputesBalance(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)
	request, _ := f.svc.CreateDepositRequest(context.Background(), f.depositInput())
	_, err := f.svc.HandleSettlementNotification(context.Background(), SettlementInput{
		ExternalRef: request.Payment.ExternalRef,
		Amount:      request.Payment.Amount,
		Signature:   "valid-sig",
	})
	if err != nil {
		t.Fatalf("settle deposit: %v", err)
	}
	f.fees.total = 50000

	final, err := f.svc.SettleFinal(context.Background(), nil, f.order)
	if err != nil {
		t.Fatalf("settle final: %v", err)
	}

	// 4h x 100000 + 50000 fees - 120000 deposit.
	if final.Amount != 330000 {
		t.Fatalf("expected final balance 330000, got %d", final.Amount)
	}
	if final.Kind != enums.PaymentKindFinal || final.Status != enums.PaymentStatusUnpaid {
		t.Fatalf("expected unpaid final row")
	}
}

func TestSettleFinalMayBeNegative(t *testing.T) {
	f := newPaymentsFixture(t, enums.OrderStatusBooked)

	// Paid deposit larger than the rental total.
	deposit := &models.Payment{
		ID:          uuid.New(),
		OrderID:     f.order.ID,
		Kind:        enums.PaymentKindDeposit,
		Status:      enums.PaymentStatusPaid,
		Amount:      500000,
		ExternalRef: "manual-ref",
	}
	f.repo.payments[deposit.ExternalRef] = deposit

	final, err := f.svc.SettleFinal(context.Background(), nil, f.order)
	if err != nil {
		t.Fatalf("settle final: %v", err)
	}
	if final.Amount != -100000 {
		t.Fatalf("expected refund-due balance -100000, got %d", final.Amount)
	}
}
