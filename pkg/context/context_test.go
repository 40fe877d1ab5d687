package context

import (
	"context"
	"strings"
	"testing"
)

func TestValuesDoNotOverwriteEachOther(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "cor_1")
	ctx = WithUserID(ctx, "user-7")
	ctx = WithOperation(ctx, "approve")
	ctx = WithBuildID(ctx, "b-1")
	ctx = WithSessionID(ctx, "s-1")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"correlation", CorrelationID(ctx), "cor_1"},
		{"user", UserID(ctx), "user-7"},
		{"operation", Operation(ctx), "approve"},
		{"build", BuildID(ctx), "b-1"},
		{"session", SessionID(ctx), "s-1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestFieldsOnlyIncludesSetValues(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "cor_1")
	ctx = WithBuildID(ctx, "b-1")

	fields := Fields(ctx)
	if len(fields) != 2 {
		t.Fatalf("fields = %v, want correlation_id and build_id only", fields)
	}
	if fields["correlation_id"] != "cor_1" || fields["build_id"] != "b-1" {
		t.Errorf("fields = %v", fields)
	}
}

func TestBegin(t *testing.T) {
	ctx := Begin(context.Background(), "tick")
	if !strings.HasPrefix(CorrelationID(ctx), "cor_") {
		t.Errorf("correlation id = %q", CorrelationID(ctx))
	}
	if Operation(ctx) != "tick" {
		t.Errorf("operation = %q", Operation(ctx))
	}

	kept := Begin(WithCorrelationID(context.Background(), "cor_fixed"), "tick")
	if CorrelationID(kept) != "cor_fixed" {
		t.Errorf("Begin replaced an existing correlation id: %q", CorrelationID(kept))
	}
	if UserID(context.Background()) != "anonymous" {
		t.Error("missing user should read as anonymous")
	}
}
