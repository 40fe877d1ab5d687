// Package notifier delivers engine events to observers.
//
// Publishing is fire-and-forget: a Publisher never returns an error and must
// not block the caller for long. Sinks that can fail log and move on.
package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

//go:generate mockgen -destination=../mocks/mock_notifier.go -package=mocks github.com/foreman-dev/foreman/pkg/notifier Publisher

// Publisher receives events
type Publisher interface {
	Publish(event types.Event)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(event types.Event)

// Publish calls f
func (f PublisherFunc) Publish(event types.Event) { f(event) }

// NewEvent stamps an event with a fresh id
func NewEvent(eventType string, data any, at time.Time) types.Event {
	return types.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Data:      data,
		Timestamp: at,
	}
}

// Nop discards every event
var Nop Publisher = PublisherFunc(func(types.Event) {})

type multi []Publisher

// Multi fans an event out to every non-nil publisher in order
func Multi(publishers ...Publisher) Publisher {
	var m multi
	for _, p := range publishers {
		if p != nil {
			m = append(m, p)
		}
	}
	return m
}

func (m multi) Publish(event types.Event) {
	for _, p := range m {
		p.Publish(event)
	}
}

// LogSink writes each event as a log line
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a log sink
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("events")}
}

// Publish implements Publisher
func (s *LogSink) Publish(event types.Event) {
	log := s.log
	fields := []logger.Field{logger.WithField("type", event.Type)}
	if rec, ok := event.Data.(*types.BuildRecord); ok {
		log = log.WithBuild(rec.ID)
		fields = append(fields,
			logger.WithField("status", rec.State),
			logger.WithField("progress", rec.Progress))
	}

	switch event.Type {
	case types.EventBuildProgress, types.EventAgentCommunication:
		log.Debug("event", fields...)
	case types.EventBuildCompleted, types.EventAppDeployed:
		log.Success(event.Type, fields...)
	default:
		log.Info("event", fields...)
	}
}

// EventAppender persists events
type EventAppender interface {
	AppendEvent(ctx context.Context, event types.Event) error
}

// EventLog appends every event to a store
type EventLog struct {
	store   EventAppender
	log     logger.Logger
	timeout time.Duration
}

// NewEventLog creates a store-backed event log
func NewEventLog(store EventAppender, log logger.Logger) *EventLog {
	return &EventLog{store: store, log: log.WithComponent("eventlog"), timeout: 5 * time.Second}
}

// Publish implements Publisher
func (e *EventLog) Publish(event types.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.store.AppendEvent(ctx, event); err != nil {
		e.log.Warn("failed to append event",
			logger.WithField("type", event.Type),
			logger.WithError(err))
	}
}
