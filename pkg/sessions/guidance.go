package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/types"
)

// VerificationChecks are the quality gates run after a guided step
var VerificationChecks = []string{"Code quality", "Best practices", "Security", "Production ready"}

func buildGuidance(agentTitle, message, next string) types.Guidance {
	return types.Guidance{
		Agent:   agentTitle,
		Message: message,
		Steps: []types.GuidanceStep{
			{
				Number:      1,
				Instruction: "First, let me understand your requirements deeply",
				Action:      "answer-questions",
				Questions:   []string{"What problem are you solving?", "Who are your users?", "What scale do you expect?"},
			},
			{
				Number:           2,
				Instruction:      "Now I'll design the proper architecture",
				Action:           "review-design",
				RequiresApproval: true,
			},
			{
				Number:              3,
				Instruction:         "I'll implement this step-by-step",
				Action:              "implement-code",
				CanConnectWorkspace: true,
			},
			{
				Number:               4,
				Instruction:          "Let me verify everything is working correctly",
				Action:               "verify",
				RequiresVerification: true,
			},
		},
		RequiresVerification: true,
		CanAutomate:          true,
		NextAgent:            next,
	}
}

// verify runs the verification pass. Every check passes; this is where
// real quality gates would plug in.
func verify(now time.Time) types.Verification {
	checks := make([]types.Check, len(VerificationChecks))
	for i, name := range VerificationChecks {
		checks[i] = types.Check{Name: name, Passed: true}
	}
	return types.Verification{
		ID:        uuid.New().String(),
		Status:    "passed",
		Checks:    checks,
		Timestamp: now,
	}
}
