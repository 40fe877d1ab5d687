// Package types provides core types and configurations for Foreman
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// BuildState represents the lifecycle state of a build record
type BuildState string

const (
	BuildStateQueued           BuildState = "queued"
	BuildStateBuilding         BuildState = "building"
	BuildStateReadyForApproval BuildState = "ready-for-approval"
	BuildStateDeploying        BuildState = "deploying"
	BuildStateDeployed         BuildState = "deployed"
	BuildStateCancelled        BuildState = "cancelled"
)

// IsCompleted reports whether the state belongs to the completed partition
func (s BuildState) IsCompleted() bool {
	switch s {
	case BuildStateReadyForApproval, BuildStateDeploying, BuildStateDeployed:
		return true
	}
	return false
}

// PhaseStatus represents the status of a single build phase
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "pending"
	PhaseStatusInProgress PhaseStatus = "in-progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// StorageDriver selects the persistence backend
type StorageDriver string

const (
	StorageDriverMemory StorageDriver = "memory"
	StorageDriverJSON   StorageDriver = "json"
	StorageDriverSQLite StorageDriver = "sqlite"
)

// ProviderKind selects the responder implementation
type ProviderKind string

const (
	ProviderKindSimulated ProviderKind = "simulated"
	ProviderKindHTTP      ProviderKind = "http"
)

// AgentDefinition describes a registered agent
type AgentDefinition struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Role              string     `json:"role"`
	Description       string     `json:"description,omitempty"`
	Provider          string     `json:"provider"`
	Model             string     `json:"model,omitempty"`
	SystemPrompt      string     `json:"systemPrompt,omitempty"`
	Capabilities      []string   `json:"capabilities,omitempty"`
	Temperature       float64    `json:"temperature"`
	MaxTokens         int        `json:"maxTokens"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	ConversationCount int        `json:"conversationCount"`
	LastUsed          *time.Time `json:"lastUsed,omitempty"`
}

// AgentTeam groups agents working on the autonomous pipeline
type AgentTeam struct {
	ID             string    `json:"id"`
	Purpose        string    `json:"purpose"`
	AgentIDs       []string  `json:"agentIds"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	TasksCompleted int       `json:"tasksCompleted"`
	AppsGenerated  int       `json:"appsGenerated"`
}

// Message is a single turn in a conversation
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the chat history between a caller and one agent
type Conversation struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatResult is returned from a chat call
type ChatResult struct {
	ConversationID string    `json:"conversationId"`
	AgentID        string    `json:"agentId"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

// Opportunity is a candidate build specification
type Opportunity struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	Monetization     string    `json:"monetization"`
	EstimatedRevenue string    `json:"estimatedRevenue"`
	BuildTime        string    `json:"buildTime"`
	Complexity       string    `json:"complexity"`
	MarketDemand     string    `json:"marketDemand,omitempty"`
	Competition      string    `json:"competition,omitempty"`
	Description      string    `json:"description,omitempty"`
	Features         []string  `json:"features,omitempty"`
	TechStack        []string  `json:"techStack,omitempty"`
	ProfitScore      float64   `json:"profitScore"`
	AddedAt          time.Time `json:"addedAt,omitempty"`
}

// Phase is one named stage of a build
type Phase struct {
	Name     string      `json:"name"`
	Agent    string      `json:"assignedAgent"`
	Status   PhaseStatus `json:"status"`
	Progress int         `json:"progress"`
}

// PaymentConfig records the payment setup of a completed build
type PaymentConfig struct {
	Provider     string         `json:"provider"`
	Status       string         `json:"status"`
	Pricing      map[string]any `json:"pricing,omitempty"`
	ConfiguredAt time.Time      `json:"setupAt"`
}

// BuildRecord is one execution of an opportunity through the phase sequence
type BuildRecord struct {
	ID                  string         `json:"id"`
	OpportunityID       string         `json:"appId"`
	Name                string         `json:"name"`
	Category            string         `json:"category,omitempty"`
	State               BuildState     `json:"status"`
	Progress            int            `json:"progress"`
	Phases              []Phase        `json:"phases"`
	StartedAt           time.Time      `json:"startedAt"`
	EstimatedCompletion time.Time      `json:"estimatedCompletion"`
	CompletedAt         *time.Time     `json:"completedAt,omitempty"`
	ApprovedAt          *time.Time     `json:"approvedAt,omitempty"`
	DeployedAt          *time.Time     `json:"deployedAt,omitempty"`
	CancelledAt         *time.Time     `json:"cancelledAt,omitempty"`
	DeploymentTarget    string         `json:"deploymentTarget,omitempty"`
	DeploymentURL       string         `json:"deploymentUrl,omitempty"`
	Payment             *PaymentConfig `json:"paymentSetup,omitempty"`
	TechStack           []string       `json:"techStack,omitempty"`
	Features            []string       `json:"features,omitempty"`
	Monetization        string         `json:"monetization,omitempty"`
	EstimatedRevenue    string         `json:"estimatedRevenue,omitempty"`
}

// Clone returns a deep copy safe to hand out of the registry
func (b *BuildRecord) Clone() *BuildRecord {
	if b == nil {
		return nil
	}
	c := *b
	c.Phases = append([]Phase(nil), b.Phases...)
	c.TechStack = append([]string(nil), b.TechStack...)
	c.Features = append([]string(nil), b.Features...)
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.ApprovedAt = cloneTime(b.ApprovedAt)
	c.DeployedAt = cloneTime(b.DeployedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	if b.Payment != nil {
		p := *b.Payment
		if b.Payment.Pricing != nil {
			p.Pricing = make(map[string]any, len(b.Payment.Pricing))
			for k, v := range b.Payment.Pricing {
				p.Pricing[k] = v
			}
		}
		c.Payment = &p
	}
	return &c
}

// CurrentPhase returns the index of the in-progress phase, or -1
func (b *BuildRecord) CurrentPhase() int {
	for i, p := range b.Phases {
		if p.Status == PhaseStatusInProgress {
			return i
		}
	}
	return -1
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SessionAgent is an agent role assigned to a guided session
type SessionAgent struct {
	Role    string `json:"type"`
	Title   string `json:"role"`
	AgentID string `json:"agentId"`
	Status  string `json:"status"`
}

// GuidanceStep is one instruction inside a guidance reply
type GuidanceStep struct {
	Number               int      `json:"number"`
	Instruction          string   `json:"instruction"`
	Action               string   `json:"action"`
	Questions            []string `json:"questions,omitempty"`
	RequiresApproval     bool     `json:"requiresApproval,omitempty"`
	CanConnectWorkspace  bool     `json:"canConnectWorkspace,omitempty"`
	RequiresVerification bool     `json:"requiresVerification,omitempty"`
}

// Guidance is the reply of an agent inside a session
type Guidance struct {
	Agent                string         `json:"agent"`
	Message              string         `json:"message"`
	Steps                []GuidanceStep `json:"steps"`
	RequiresVerification bool           `json:"requiresVerification"`
	CanAutomate          bool           `json:"canAutomate"`
	NextAgent            string         `json:"nextAgent"`
}

// Step records one guidance exchange in a session
type Step struct {
	Agent     string    `json:"agentType"`
	Message   string    `json:"message"`
	Guidance  Guidance  `json:"guidance"`
	Timestamp time.Time `json:"timestamp"`
}

// Check is a single verification check
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// Verification is the result of a verification pass
type Verification struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Checks    []Check   `json:"checks"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkspaceConnection records the direct-implementation connection
type WorkspaceConnection struct {
	Workspace   string    `json:"workspace"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Session is a guided multi-agent build-assistance flow
type Session struct {
	ID             string               `json:"id"`
	UserID         string               `json:"userId"`
	Goal           string               `json:"projectGoal"`
	Status         string               `json:"status"`
	StartedAt      time.Time            `json:"startedAt"`
	CurrentAgent   string               `json:"currentAgent"`
	AssignedAgents []SessionAgent       `json:"assignedAgents"`
	Steps          []Step               `json:"steps"`
	Verifications  []Verification       `json:"verificationsPassed"`
	Connected      bool                 `json:"connected"`
	Connection     *WorkspaceConnection `json:"connection,omitempty"`
	AutonomousMode bool                 `json:"autonomousMode"`
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.AssignedAgents = append([]SessionAgent(nil), s.AssignedAgents...)
	c.Steps = append([]Step(nil), s.Steps...)
	c.Verifications = append([]Verification(nil), s.Verifications...)
	if s.Connection != nil {
		conn := *s.Connection
		c.Connection = &conn
	}
	return &c
}

// Event is published to observers
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types
const (
	EventBuildStarted        = "build-started"
	EventBuildProgress       = "build-progress"
	EventBuildCompleted      = "build-completed"
	EventBuildCancelled      = "build-cancelled"
	EventAppDeployed         = "app-deployed"
	EventPaymentConfigured   = "payment-configured"
	EventOpportunities       = "app-opportunities"
	EventSessionStarted      = "session-started"
	EventWorkspaceConnected  = "workspace-connected"
	EventAgentCommunication  = "agent-communication"
	EventAutonomousDecision  = "autonomous-decision"
	EventConfigurationReload = "configuration-reloaded"

	EventIntegrationConnected    = "integration-connected"
	EventIntegrationDisconnected = "integration-disconnected"
)

// Stats is the dashboard aggregate
type Stats struct {
	Agents              int `json:"agents"`
	AgentTeams          int `json:"agentTeams"`
	TotalTeamAgents     int `json:"totalAgents"`
	ActiveBuilds        int `json:"activeBuilds"`
	CompletedApps       int `json:"generatedApps"`
	QueuedTasks         int `json:"queuedTasks"`
	CancelledBuilds     int `json:"cancelledBuilds"`
	Sessions            int `json:"sessions"`
	Conversations       int `json:"conversations"`
	AgentCommunications int `json:"agentCommunications"`
	AutonomousDecisions int `json:"autonomousDecisions"`

	Integrations *IntegrationStats `json:"integrations,omitempty"`
}

// Connection states
const (
	ConnectionConnected    = "connected"
	ConnectionDisconnected = "disconnected"
)

// Integration is an external service users can connect to their builds
type Integration struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Icon            string   `json:"icon"`
	Description     string   `json:"description"`
	Status          string   `json:"status"`
	Features        []string `json:"features"`
	SetupComplexity string   `json:"setupComplexity"`
	RequiresAuth    bool     `json:"requiresAuth"`
	AuthType        string   `json:"authType,omitempty"`
}

// IntegrationConnection is one user's connection to an integration. Secrets
// in Config are masked before the connection is stored.
type IntegrationConnection struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	IntegrationID   string            `json:"integrationId"`
	IntegrationName string            `json:"integrationName"`
	Status          string            `json:"status"`
	ConnectedAt     time.Time         `json:"connectedAt"`
	DisconnectedAt  *time.Time        `json:"disconnectedAt,omitempty"`
	Config          map[string]string `json:"config,omitempty"`
	LastUsed        *time.Time        `json:"lastUsed,omitempty"`
	UsageCount      int               `json:"usageCount"`
}

// Clone returns a deep copy of the connection
func (c *IntegrationConnection) Clone() *IntegrationConnection {
	if c == nil {
		return nil
	}
	out := *c
	out.DisconnectedAt = cloneTime(c.DisconnectedAt)
	out.LastUsed = cloneTime(c.LastUsed)
	if c.Config != nil {
		out.Config = make(map[string]string, len(c.Config))
		for k, v := range c.Config {
			out.Config[k] = v
		}
	}
	return &out
}

// ConnectionTest is the result of checking a connection
type ConnectionTest struct {
	ConnectionID string    `json:"connectionId"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	LatencyMs    int       `json:"latency"`
	TestedAt     time.Time `json:"testedAt"`
}

// ActionResult is returned after running an action through a connection
type ActionResult struct {
	Success   bool      `json:"success"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// IntegrationUsage counts the live connections of one integration
type IntegrationUsage struct {
	Name        string `json:"name"`
	Connections int    `json:"connections"`
}

// IntegrationStats summarizes the catalog and its connections
type IntegrationStats struct {
	TotalIntegrations int                         `json:"totalIntegrations"`
	TotalConnections  int                         `json:"totalConnections"`
	ActiveConnections int                         `json:"activeConnections"`
	ByIntegration     map[string]IntegrationUsage `json:"byIntegration"`
}

// Duration is a time.Duration that reads "30s" strings or millisecond numbers
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v) * time.Millisecond)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration: %s", string(data))
	}
	return nil
}

// SchedulingConfig controls admission and timer cadence
type SchedulingConfig struct {
	MaxConcurrentBuilds int      `json:"maxConcurrentBuilds" yaml:"maxConcurrentBuilds"`
	TickInterval        Duration `json:"tickInterval" yaml:"tickInterval"`
	OpportunityInterval Duration `json:"opportunityInterval" yaml:"opportunityInterval"`
	ProgressInterval    Duration `json:"progressInterval" yaml:"progressInterval"`
	ProgressIncrement   int      `json:"progressIncrement" yaml:"progressIncrement"`
	DeployDelay         Duration `json:"deployDelay" yaml:"deployDelay"`
	TopK                int      `json:"topK" yaml:"topK"`
}

// OpportunityConfig controls the opportunity generator
type OpportunityConfig struct {
	Seed   int64   `json:"seed" yaml:"seed"`
	Jitter float64 `json:"jitter" yaml:"jitter"`
}

// StorageConfig selects and locates the persistence backend
type StorageConfig struct {
	Driver StorageDriver `json:"driver" yaml:"driver"`
	Path   string        `json:"path" yaml:"path"`
}

// ProviderConfig selects the chat responder
type ProviderConfig struct {
	Kind    ProviderKind `json:"kind" yaml:"kind"`
	Timeout Duration     `json:"timeout" yaml:"timeout"`
}

// NotificationConfig controls event sinks
type NotificationConfig struct {
	Desktop  bool `json:"desktop" yaml:"desktop"`
	EventLog bool `json:"eventLog" yaml:"eventLog"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	File  string   `json:"file,omitempty" yaml:"file,omitempty"`
	Level LogLevel `json:"level" yaml:"level"`
}

// ForemanConfig is the root configuration
type ForemanConfig struct {
	Version       string             `json:"version" yaml:"version"`
	Scheduling    SchedulingConfig   `json:"scheduling" yaml:"scheduling"`
	Opportunities OpportunityConfig  `json:"opportunities" yaml:"opportunities"`
	Storage       StorageConfig      `json:"storage" yaml:"storage"`
	Provider      ProviderConfig     `json:"provider" yaml:"provider"`
	Notifications NotificationConfig `json:"notifications" yaml:"notifications"`
	Logging       LoggingConfig      `json:"logging" yaml:"logging"`
}
