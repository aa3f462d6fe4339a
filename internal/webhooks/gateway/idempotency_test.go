package gatewaywebhook

import (
	"context"
	"fmt"
	"testing"
	"time"
)

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

func TestCheckAndMark(t *testing.T) {
	guard, err := NewIdempotencyGuard(newFakeMarkerStore(), time.Minute, "gateway")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if seen {
		t.Fatal("first notification must not be marked seen")
	}

	seen, err = guard.CheckAndMark(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !seen {
		t.Fatal("duplicate notification must be marked seen")
	}
}

func TestDeleteAllowsRetry(t *testing.T) {
	guard, err := NewIdempotencyGuard(newFakeMarkerStore(), time.Minute, "gateway")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "ref-2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := guard.Delete(context.Background(), "ref-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "ref-2")
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if seen {
		t.Fatal("deleted marker must allow a retry")
	}
}

func TestGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Minute, "gateway"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newFakeMarkerStore(), time.Minute, ""); err == nil {
		t.Fatal("expected error for empty provider")
	}

	guard, _ := NewIdempotencyGuard(newFakeMarkerStore(), time.Minute, "gateway")
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
