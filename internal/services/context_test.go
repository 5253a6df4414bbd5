package services_test

import (
	"context"
	"testing"

	"audiosub/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithSessionID(ctx, "rec-9")

	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if sid, ok := services.SessionIDFromContext(ctx); !ok || sid != "rec-9" {
		t.Fatalf("unexpected session id: %v %v", sid, ok)
	}
}

func TestBlankIDsPreserveContext(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "")
	ctx = services.WithSessionID(ctx, "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id")
	}
	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session id")
	}
}
