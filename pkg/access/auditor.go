package access

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// Auditor writes one structured log entry per repository access and forwards
// the event to its sinks.
type Auditor struct {
	logger *logrus.Logger
	sinks  []types.AuditSink
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithLogger sets the logger entries are written to. The default is the
// logrus standard logger.
func WithLogger(logger *logrus.Logger) AuditorOption {
	return func(a *Auditor) {
		a.logger = logger
	}
}

// WithSinks adds sinks that observe every recorded event.
func WithSinks(sinks ...types.AuditSink) AuditorOption {
	return func(a *Auditor) {
		for _, sink := range sinks {
			if sink != nil {
				a.sinks = append(a.sinks, sink)
			}
		}
	}
}

// NewAuditor creates an Auditor.
func NewAuditor(opts ...AuditorOption) *Auditor {
	auditor := &Auditor{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(auditor)
	}

	return auditor
}

// Record fills in missing fields, logs the event at info level on success and
// warn level on failure, and passes it to every sink.
//
// Parameters:
//   - event: Event to record. Missing user, client address, operation, id or
//     timestamp are defaulted; a negative duration is clamped to zero.
//
// Returns:
//   - types.AuditEvent: The event as recorded.
func (a *Auditor) Record(event types.AuditEvent) types.AuditEvent {
	event = complete(event)

	entry := a.logger.WithFields(logrus.Fields{
		"event_id":    event.ID,
		"operation":   event.Operation,
		"repository":  event.Repository,
		"user":        event.User,
		"client_ip":   event.ClientAddress,
		"user_agent":  event.UserAgent,
		"success":     event.Success,
		"duration_ms": event.Duration.Milliseconds(),
	})

	if event.Success {
		entry.Info("Git access")
	} else {
		entry.Warn("Git access failed")
	}

	for _, sink := range a.sinks {
		sink.Observe(event)
	}

	return event
}

func complete(event types.AuditEvent) types.AuditEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.User == "" {
		event.User = types.AnonymousUser
	}

	if event.ClientAddress == "" {
		event.ClientAddress = types.UnknownClient
	}

	if event.Operation == "" {
		event.Operation = types.OperationInfoRefs
	}

	if event.Duration < 0 {
		event.Duration = 0
	}

	return event
}
