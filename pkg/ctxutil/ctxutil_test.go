package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUserID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got, ok := UserIDFromCtx(WithUserID(context.Background(), id))
	if !ok || got != id {
		t.Fatalf("UserIDFromCtx() = %s, %v; want %s, true", got, ok, id)
	}

	if _, ok := UserIDFromCtx(context.Background()); ok {
		t.Error("expected ok=false for empty context")
	}
	if _, ok := UserIDFromCtx(WithUserID(context.Background(), uuid.Nil)); ok {
		t.Error("expected ok=false for uuid.Nil")
	}
	if _, ok := UserIDFromCtx(context.WithValue(context.Background(), ctxKey("user_id"), "not-a-uuid")); ok {
		t.Error("expected ok=false for wrong type")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromCtx(WithRequestID(context.Background(), "req-1")); got != "req-1" {
		t.Errorf("RequestIDFromCtx() = %q, want req-1", got)
	}
	if got := RequestIDFromCtx(context.Background()); got != "" {
		t.Errorf("RequestIDFromCtx() = %q, want empty", got)
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*3600)
	if got := LocationFromCtx(WithLocation(context.Background(), tokyo), time.UTC); got != tokyo {
		t.Errorf("LocationFromCtx() = %v, want JST", got)
	}
	if got := LocationFromCtx(context.Background(), time.UTC); got != time.UTC {
		t.Errorf("LocationFromCtx() = %v, want fallback UTC", got)
	}
}
