package types

import (
	"context"
	"testing"
)

func TestContextPropagation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = WithTenantID(ctx, "acme")
	ctx = WithUserID(ctx, "u-1")
	ctx = WithRunID(ctx, "run-42")
	ctx = WithRequestID(ctx, "req-abc")

	if v, ok := TenantID(ctx); !ok || v != "acme" {
		t.Fatalf("tenant id: got %q, %v", v, ok)
	}
	if v, ok := UserID(ctx); !ok || v != "u-1" {
		t.Fatalf("user id: got %q, %v", v, ok)
	}
	if v, ok := RunID(ctx); !ok || v != "run-42" {
		t.Fatalf("run id: got %q, %v", v, ok)
	}
	if v, ok := RequestID(ctx); !ok || v != "req-abc" {
		t.Fatalf("request id: got %q, %v", v, ok)
	}
}

func TestContextPropagation_Absent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, ok := TenantID(ctx); ok {
		t.Fatalf("expected no tenant id")
	}
	if _, ok := TenantID(WithTenantID(ctx, "")); ok {
		t.Fatalf("empty tenant id should report absent")
	}
}
