package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voltride/voltride-backend/internal/payments"
	gatewaywebhook "github.com/voltride/voltride-backend/internal/webhooks/gateway"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type fakeSettlementService struct {
	calls int
	err   error
}

func (f *fakeSettlementService) HandleSettlementNotification(_ context.Context, input payments.SettlementInput) (*payments.SettlementAck, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &payments.SettlementAck{
		ExternalRef:    input.ExternalRef,
		Status:         enums.PaymentStatusPaid,
		AlreadySettled: f.calls > 1,
	}, nil
}

type fakeMarkerStore struct {
	data map[string]string
}

func newFakeMarkerStore() *fakeMarkerStore {
	return &fakeMarkerStore{data: make(map[string]string)}
}

func (f *fakeMarkerStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeMarkerStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeMarkerStore) WebhookEventKey(provider, eventID string) string {
	return fmt.Sprintf("fake:webhook:%s:%s", provider, eventID)
}

func newGuard(t *testing.T) *gatewaywebhook.IdempotencyGuard {
	t.Helper()
	guard, err := gatewaywebhook.NewIdempotencyGuard(newFakeMarkerStore(), time.Minute, "gateway")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func notificationBody(ref string) string {
	return `{"external_ref":"` + ref + `","amount":120000,"signature":"sig"}`
}

func TestPaymentWebhook_SettlesAndAcksDuplicate(t *testing.T) {
	svc := &fakeSettlementService{}
	handler := PaymentWebhook(svc, newGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(notificationBody("ref-1")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(notificationBody("ref-1")))
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, replay)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if !strings.Contains(rec2.Body.String(), `"already_settled":true`) {
		t.Fatalf("expected duplicate ack, got %s", rec2.Body.String())
	}
}

func TestPaymentWebhook_ClearsMarkerOnFailure(t *testing.T) {
	svc := &fakeSettlementService{err: pkgerrors.New(pkgerrors.CodeGateway, "invalid settlement signature")}
	store := newFakeMarkerStore()
	guard, err := gatewaywebhook.NewIdempotencyGuard(store, time.Minute, "gateway")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	handler := PaymentWebhook(svc, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(notificationBody("ref-2")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(store.data) != 0 {
		t.Fatalf("expected marker cleared so the gateway can retry")
	}
}

func TestPaymentWebhook_RejectsMalformedPayload(t *testing.T) {
	svc := &fakeSettlementService{}
	handler := PaymentWebhook(svc, newGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(`{"amount":0}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be invoked on malformed payload")
	}
}
