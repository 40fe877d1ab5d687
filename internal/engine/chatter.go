package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/notifier"
	"github.com/foreman-dev/foreman/pkg/types"
)

// historyLimit caps how many communications and decisions are kept
const historyLimit = 100

var communicationTopics = []string{
	"Best practices for production deployment",
	"Optimizing system performance",
	"Security considerations for the current build",
	"Improving user experience",
	"Scaling strategies",
	"Code quality improvements",
	"Integration patterns",
	"Error handling strategies",
}

var improvementDecisions = []string{
	"Optimizing agent communication protocol",
	"Enhancing error detection capabilities",
	"Improving code generation quality",
	"Strengthening security measures",
	"Accelerating build processes",
	"Expanding agent capabilities",
	"Refining user guidance system",
	"Upgrading integration reliability",
}

// Communication is a knowledge exchange between two specialist agents
type Communication struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Topic        string    `json:"topic"`
	Timestamp    time.Time `json:"timestamp"`
	Outcome      string    `json:"outcome"`
}

// Decision is a self-improvement decision taken by the orchestrator
type Decision struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Decision  string    `json:"decision"`
	Timestamp time.Time `json:"timestamp"`
	Impact    string    `json:"impact"`
}

// chatter produces the background agent-communication and
// autonomous-decision events
type chatter struct {
	agents    *agents.Registry
	publisher notifier.Publisher
	logger    logger.Logger

	mu             sync.Mutex
	rand           *rand.Rand
	communications []Communication
	decisions      []Decision
	commTotal      int
	decisionTotal  int
}

func newChatter(reg *agents.Registry, pub notifier.Publisher, log logger.Logger, seed int64) *chatter {
	return &chatter{
		agents:    reg,
		publisher: pub,
		logger:    log.WithComponent("chatter"),
		rand:      rand.New(rand.NewSource(seed)), //nolint:gosec
	}
}

// communicate pairs two distinct blueprint agents on a random topic. It
// returns false when fewer than two blueprints exist.
func (c *chatter) communicate(now time.Time) (Communication, bool) {
	blueprints := c.agents.Blueprints()
	if len(blueprints) < 2 {
		return Communication{}, false
	}

	c.mu.Lock()
	i := c.rand.Intn(len(blueprints))
	j := c.rand.Intn(len(blueprints) - 1)
	if j >= i {
		j++
	}
	comm := Communication{
		ID:           uuid.New().String(),
		Participants: []string{blueprints[i].Role, blueprints[j].Role},
		Topic:        communicationTopics[c.rand.Intn(len(communicationTopics))],
		Timestamp:    now,
		Outcome:      "knowledge-shared",
	}
	c.communications = appendCapped(c.communications, comm)
	c.commTotal++
	c.mu.Unlock()

	c.logger.Debug("Agent communication",
		logger.WithField("participants", comm.Participants),
		logger.WithField("topic", comm.Topic))
	c.publisher.Publish(notifier.NewEvent(types.EventAgentCommunication, comm, now))
	return comm, true
}

// decide records one self-improvement decision
func (c *chatter) decide(now time.Time) Decision {
	c.mu.Lock()
	d := Decision{
		ID:        uuid.New().String(),
		Type:      "self-improvement",
		Decision:  improvementDecisions[c.rand.Intn(len(improvementDecisions))],
		Timestamp: now,
		Impact:    "system-enhancement",
	}
	c.decisions = appendCapped(c.decisions, d)
	c.decisionTotal++
	c.mu.Unlock()

	c.logger.Info("Autonomous decision", logger.WithField("decision", d.Decision))
	c.publisher.Publish(notifier.NewEvent(types.EventAutonomousDecision, d, now))
	return d
}

func (c *chatter) history() ([]Communication, []Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	comms := make([]Communication, len(c.communications))
	for i, comm := range c.communications {
		comm.Participants = append([]string(nil), comm.Participants...)
		comms[i] = comm
	}
	return comms, append([]Decision(nil), c.decisions...)
}

func (c *chatter) totals() (communications, decisions int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commTotal, c.decisionTotal
}

func appendCapped[T any](items []T, item T) []T {
	items = append(items, item)
	if len(items) > historyLimit {
		items = items[len(items)-historyLimit:]
	}
	return items
}
