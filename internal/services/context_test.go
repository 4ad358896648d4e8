package services_test

import (
	"context"
	"testing"

	"cinefetch/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithRecordID(ctx, "42")
	ctx = services.WithKind(ctx, "poster")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.RecordIDFromContext(ctx); !ok || id != "42" {
		t.Fatalf("unexpected record id: %v %v", id, ok)
	}
	if kind, ok := services.KindFromContext(ctx); !ok || kind != "poster" {
		t.Fatalf("unexpected kind: %v %v", kind, ok)
	}
}

func TestKindBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithKind(ctx, "")
	if _, ok := services.KindFromContext(ctx); ok {
		t.Fatal("expected no kind value")
	}
}
