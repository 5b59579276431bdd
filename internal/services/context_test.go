package services_test

import (
	"context"
	"testing"

	"voiceloom/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProjectID(ctx, "ab12cd34")
	ctx = services.WithStage(ctx, "slicing")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ProjectIDFromContext(ctx); !ok || id != "ab12cd34" {
		t.Fatalf("unexpected project id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "slicing" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestProjectIDBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProjectID(ctx, "")
	if _, ok := services.ProjectIDFromContext(ctx); ok {
		t.Fatal("expected no project id value")
	}
}
