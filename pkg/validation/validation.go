// Package validation checks agent definitions and opportunities before they
// enter a registry or the build queue
package validation

import (
	"fmt"
	"strings"

	"github.com/foreman-dev/foreman/pkg/opportunity"
	"github.com/foreman-dev/foreman/pkg/provider"
	"github.com/foreman-dev/foreman/pkg/types"
)

// Level represents issue severity
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Issue is one validation finding
type Issue struct {
	Subject string
	Field   string
	Message string
	Level   Level
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s.%s: %s", i.Level, i.Subject, i.Field, i.Message)
}

// Result collects issues; Valid is false once any error-level issue is added
type Result struct {
	Valid  bool
	Issues []Issue
}

func newResult() *Result {
	return &Result{Valid: true}
}

// Add records an issue
func (r *Result) Add(subject, field, message string, level Level) {
	r.Issues = append(r.Issues, Issue{Subject: subject, Field: field, Message: message, Level: level})
	if level == LevelError {
		r.Valid = false
	}
}

// Merge appends other's issues
func (r *Result) Merge(other *Result) {
	r.Issues = append(r.Issues, other.Issues...)
	if !other.Valid {
		r.Valid = false
	}
}

// Warnings returns the warning-level issues
func (r *Result) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Level == LevelWarning {
			out = append(out, i)
		}
	}
	return out
}

// Err returns the first error-level issue as a *types.ValidationError, or nil
func (r *Result) Err() error {
	for _, i := range r.Issues {
		if i.Level == LevelError {
			return types.NewValidation(i.Field, i.Message)
		}
	}
	return nil
}

// Agent validates a definition submitted for registration
func Agent(def types.AgentDefinition) *Result {
	result := newResult()
	subject := def.Name
	if subject == "" {
		subject = "agent"
	}

	if strings.TrimSpace(def.Name) == "" {
		result.Add(subject, "name", "name is required", LevelError)
	}
	if strings.TrimSpace(def.Role) == "" {
		result.Add(subject, "role", "role is required", LevelError)
	}
	switch {
	case def.Provider == "":
		result.Add(subject, "provider", "provider is required", LevelError)
	case !provider.IsKnown(def.Provider):
		result.Add(subject, "provider",
			fmt.Sprintf("unknown provider %q (known: %s)", def.Provider, strings.Join(provider.Names(), ", ")),
			LevelError)
	}
	if def.Temperature < 0 || def.Temperature > 2 {
		result.Add(subject, "temperature", "temperature must be between 0 and 2", LevelError)
	}
	if def.MaxTokens < 0 {
		result.Add(subject, "maxTokens", "maxTokens cannot be negative", LevelError)
	}
	if def.SystemPrompt == "" {
		result.Add(subject, "systemPrompt", "no system prompt; replies will be generic", LevelWarning)
	}
	return result
}

// Opportunity validates a spec submitted to the build queue
func Opportunity(op types.Opportunity) *Result {
	result := newResult()
	subject := op.ID
	if subject == "" {
		subject = "opportunity"
	}

	if op.ID == "" {
		result.Add(subject, "id", "id is required", LevelError)
	}
	if strings.TrimSpace(op.Name) == "" {
		result.Add(subject, "name", "name is required", LevelError)
	}
	if op.ProfitScore < 0 || op.ProfitScore > 10 {
		result.Add(subject, "profitScore", "profit score must be within [0, 10]", LevelError)
	}
	if _, ok := opportunity.BuildDays(op.BuildTime); !ok {
		result.Add(subject, "buildTime",
			fmt.Sprintf("cannot parse build time %q; completion estimate falls back to start time", op.BuildTime),
			LevelWarning)
	}
	return result
}

// Opportunities validates a batch and rejects duplicate ids
func Opportunities(ops []types.Opportunity) *Result {
	result := newResult()
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		if op.ID != "" && seen[op.ID] {
			result.Add(op.ID, "id", "duplicate opportunity id", LevelError)
		}
		seen[op.ID] = true
		result.Merge(Opportunity(op))
	}
	return result
}
