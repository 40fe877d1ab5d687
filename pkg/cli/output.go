package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/foreman-dev/foreman/pkg/types"
)

func (c *CLI) printJSON(v any) error {
	enc := json.NewEncoder(c.output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) newTable(header ...interface{}) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.output)
	tw.AppendHeader(table.Row(header))
	return tw
}

// relTime renders t relative to now, or "-" when unset
func relTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func relTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return relTime(*t)
}

func stateString(s types.BuildState) string {
	switch s {
	case types.BuildStateDeployed:
		return color.GreenString(string(s))
	case types.BuildStateReadyForApproval:
		return color.CyanString(string(s))
	case types.BuildStateBuilding, types.BuildStateDeploying:
		return color.YellowString(string(s))
	case types.BuildStateCancelled:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

// progressBar renders a 20 cell bar for a percentage
func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent / 5
	return fmt.Sprintf("%s%s %3d%%", strings.Repeat("█", filled), strings.Repeat("░", 20-filled), percent)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (c *CLI) renderBuilds(builds []*types.BuildRecord) {
	tw := c.newTable("ID", "Name", "State", "Progress", "Phase", "Started", "Deployment")
	for _, b := range builds {
		phase := "-"
		if i := b.CurrentPhase(); i >= 0 {
			phase = b.Phases[i].Name
		}
		deployment := b.DeploymentURL
		if deployment == "" && b.DeploymentTarget != "" {
			deployment = b.DeploymentTarget
		}
		tw.AppendRow(table.Row{
			b.ID, truncate(b.Name, 32), stateString(b.State), progressBar(b.Progress),
			phase, relTime(b.StartedAt), deployment,
		})
	}
	tw.Render()
}

func (c *CLI) renderBuild(b *types.BuildRecord) {
	fmt.Fprintf(c.output, "%s  %s\n", color.New(color.Bold).Sprint(b.Name), stateString(b.State))
	fmt.Fprintf(c.output, "  ID:          %s (opportunity %s)\n", b.ID, b.OpportunityID)
	fmt.Fprintf(c.output, "  Progress:    %s\n", progressBar(b.Progress))
	fmt.Fprintf(c.output, "  Started:     %s\n", relTime(b.StartedAt))
	fmt.Fprintf(c.output, "  Estimated:   %s\n", relTime(b.EstimatedCompletion))
	fmt.Fprintf(c.output, "  Completed:   %s\n", relTimePtr(b.CompletedAt))
	if b.DeploymentTarget != "" {
		fmt.Fprintf(c.output, "  Deployment:  %s %s\n", b.DeploymentTarget, b.DeploymentURL)
	}
	if b.Payment != nil {
		fmt.Fprintf(c.output, "  Payment:     %s (%s)\n", b.Payment.Provider, b.Payment.Status)
	}

	tw := c.newTable("Phase", "Agent", "Status", "Progress")
	for _, p := range b.Phases {
		tw.AppendRow(table.Row{p.Name, p.Agent, string(p.Status), progressBar(p.Progress)})
	}
	tw.Render()
}

func (c *CLI) renderOpportunities(ops []types.Opportunity) {
	tw := c.newTable("ID", "Name", "Category", "Score", "Revenue", "Build Time", "Complexity")
	for _, op := range ops {
		tw.AppendRow(table.Row{
			op.ID, truncate(op.Name, 32), op.Category, fmt.Sprintf("%.1f", op.ProfitScore),
			op.EstimatedRevenue, op.BuildTime + " days", op.Complexity,
		})
	}
	tw.Render()
}

func (c *CLI) renderStats(s types.Stats) {
	tw := c.newTable("Metric", "Value")
	tw.AppendRows([]table.Row{
		{"Agents", humanize.Comma(int64(s.Agents))},
		{"Agent teams", s.AgentTeams},
		{"Team agents", s.TotalTeamAgents},
		{"Active builds", s.ActiveBuilds},
		{"Generated apps", s.CompletedApps},
		{"Queued tasks", s.QueuedTasks},
		{"Cancelled builds", s.CancelledBuilds},
		{"Guided sessions", s.Sessions},
		{"Conversations", humanize.Comma(int64(s.Conversations))},
		{"Agent communications", humanize.Comma(int64(s.AgentCommunications))},
		{"Autonomous decisions", humanize.Comma(int64(s.AutonomousDecisions))},
	})
	if s.Integrations != nil {
		tw.AppendRow(table.Row{"Integration connections",
			fmt.Sprintf("%d active / %d total", s.Integrations.ActiveConnections, s.Integrations.TotalConnections)})
	}
	tw.Render()
}
