package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := FetchFailed("search request", cause)

	want := "FETCH_FAILED: search request: connection refused"
	if err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if len(err.StackTrace()) == 0 {
		t.Error("stack should be captured")
	}
}

func TestIsWalksWrappedChain(t *testing.T) {
	inner := Transport("warm-up", errors.New("timeout"))
	outer := fmt.Errorf("ingest: %w", Internal("stage failed", inner))

	if !Is(outer, ErrTypeTransport) {
		t.Error("expected TRANSPORT to be found through the chain")
	}
	if !Is(outer, ErrTypeInternal) {
		t.Error("expected INTERNAL to be found")
	}
	if Is(outer, ErrTypeStorage) {
		t.Error("STORAGE should not match")
	}
	if Is(errors.New("plain"), ErrTypeInternal) {
		t.Error("plain errors never match")
	}
}
