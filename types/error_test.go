package types

import (
	"errors"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamUnavailable, "metering collector unreachable").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true)

	if GetErrorCode(err) != ErrUpstreamUnavailable {
		t.Fatalf("expected code %s, got %s", ErrUpstreamUnavailable, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_Constructors(t *testing.T) {
	t.Parallel()

	nf := NewNotFoundError("workflow not found")
	if nf.Code != ErrNotFound || nf.HTTPStatus != 404 {
		t.Fatalf("unexpected not-found error: %+v", nf)
	}

	pd := NewPermissionDeniedError("subscription does not allow this capability")
	if pd.Code != ErrPermissionDenied || pd.HTTPStatus != 403 {
		t.Fatalf("unexpected permission error: %+v", pd)
	}
}

func TestError_NodeAttribution(t *testing.T) {
	t.Parallel()

	err := NewError(ErrNodeFailed, "capability failed").WithNodeID("n1")
	if err.NodeID != "n1" {
		t.Fatalf("expected node id n1, got %q", err.NodeID)
	}
}

func TestGetErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code for plain error, got %s", code)
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are not retryable")
	}
}
