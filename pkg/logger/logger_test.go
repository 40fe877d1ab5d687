package logger_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	fcontext "github.com/foreman-dev/foreman/pkg/context"
	"github.com/foreman-dev/foreman/pkg/logger"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		visible  []string
		filtered []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}, nil},
		{"info", []string{"INFO", "WARN", "ERROR"}, []string{"DEBUG"}},
		{"warn", []string{"WARN", "ERROR"}, []string{"DEBUG", "INFO"}},
		{"error", []string{"ERROR"}, []string{"DEBUG", "INFO", "WARN"}},
		{"bogus", []string{"INFO"}, []string{"DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.CreateLoggerWithOutput(tt.level, &buf)

			log.Debug("m")
			log.Info("m")
			log.Warn("m")
			log.Error("m")

			output := buf.String()
			for _, lvl := range tt.visible {
				if !strings.Contains(output, lvl+":") {
					t.Errorf("expected %s line in output:\n%s", lvl, output)
				}
			}
			for _, lvl := range tt.filtered {
				if strings.Contains(output, lvl+":") {
					t.Errorf("did not expect %s line in output:\n%s", lvl, output)
				}
			}
		})
	}
}

func TestScopePrefix(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.WithComponent("scheduler").WithBuild("b-42").Info("admitted")

	output := buf.String()
	if !strings.Contains(output, "[scheduler/b-42] admitted") {
		t.Errorf("expected scope prefix, got %q", output)
	}
}

func TestFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Info("tick",
		logger.WithField("queue", 2),
		logger.WithField("active", 1),
		logger.WithError(errors.New("boom")),
	)

	output := buf.String()
	if !strings.Contains(output, "{active=1, error=boom, queue=2}") {
		t.Errorf("expected sorted fields, got %q", output)
	}
}

func TestSuccess(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Success("build deployed")

	if !strings.Contains(buf.String(), "✅ build deployed") {
		t.Errorf("expected success marker, got %q", buf.String())
	}
}

func TestSetLevelIsShared(t *testing.T) {
	var buf bytes.Buffer
	base := logger.CreateLoggerWithOutput("info", &buf)
	scoped := base.WithComponent("engine")

	scoped.Debug("hidden")
	base.SetLevel("debug")
	scoped.Debug("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("debug line logged before level change")
	}
	if !strings.Contains(output, "shown") {
		t.Error("debug line missing after level change")
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	ctx := fcontext.WithCorrelationID(context.Background(), "cor_1")
	ctx = fcontext.WithBuildID(ctx, "b-1")

	logger.FromContext(ctx, log).Info("progress")

	output := buf.String()
	for _, want := range []string{"correlation_id=cor_1", "build_id=b-1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in %q", want, output)
		}
	}
	for _, unwanted := range []string{"operation=", "session_id=", "user_id="} {
		if strings.Contains(output, unwanted) {
			t.Errorf("unexpected %q in %q", unwanted, output)
		}
	}
}

func TestDiscard(t *testing.T) {
	log := logger.Discard()
	log.Error("nothing")
	log.WithBuild("x").Info("nothing")
}
