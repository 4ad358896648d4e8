package services_test

import (
	"errors"
	"strings"
	"testing"

	"cinefetch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "fetcher", "get", "attempt 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fetcher", "get", "attempt 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassification(t *testing.T) {
	setup := services.Wrap(services.ErrSetup, "pipeline", "read input", "", errors.New("missing"))
	if !services.IsFatal(setup) {
		t.Fatal("expected setup failure to be fatal")
	}
	if services.IsRetryable(setup) {
		t.Fatal("setup failure must not be retryable")
	}

	resp := services.Wrap(services.ErrResponse, "fetcher", "get", "HTTP 503", nil)
	if !services.IsRetryable(resp) {
		t.Fatal("expected response failure to be retryable")
	}
	if services.IsFatal(resp) {
		t.Fatal("response failure must not be fatal")
	}
	if services.IsFatal(nil) || services.IsRetryable(nil) {
		t.Fatal("nil error must not classify")
	}
}
