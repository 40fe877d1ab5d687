package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/foreman-dev/foreman/pkg/logger"
)

// TestSafeGroupPanicRecovery tests that SafeGroup properly recovers from panics
func TestSafeGroupPanicRecovery(t *testing.T) {
	tests := []struct {
		name          string
		operations    []func() error
		expectError   bool
		errorContains string
	}{
		{
			name: "successful operations",
			operations: []func() error{
				func() error { return nil },
				func() error { return nil },
				func() error { return nil },
			},
			expectError: false,
		},
		{
			name: "one operation returns error",
			operations: []func() error{
				func() error { return nil },
				func() error { return errors.New("operation failed") },
				func() error { return nil },
			},
			expectError:   true,
			errorContains: "operation failed",
		},
		{
			name: "one operation panics",
			operations: []func() error{
				func() error { return nil },
				func() error { panic("test panic") },
				func() error { return nil },
			},
			expectError:   true,
			errorContains: "goroutine panic",
		},
		{
			name: "multiple operations panic",
			operations: []func() error{
				func() error { panic("panic 1") },
				func() error { panic("panic 2") },
				func() error { return nil },
			},
			expectError:   true,
			errorContains: "goroutine panic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.CreateLoggerWithOutput("debug", io.Discard)

			g, _ := NewSafeGroup(context.Background(), log)
			g.SetLimit(2)

			for _, op := range tt.operations {
				g.Go(op)
			}

			err := g.Wait()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error containing '%s', got: %v", tt.errorContains, err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
