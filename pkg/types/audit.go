package types

import "time"

// Operation is the kind of git protocol interaction a request performs.
type Operation string

const (
	// OperationFetch covers clone and fetch (git-upload-pack).
	OperationFetch Operation = "FETCH"
	// OperationPush covers push (git-receive-pack).
	OperationPush Operation = "PUSH"
	// OperationInfoRefs covers ref advertisement and anything unrecognised.
	OperationInfoRefs Operation = "INFO_REFS"
)

// AnonymousUser is recorded when a request carries no principal.
const AnonymousUser = "anonymous"

// UnknownClient is recorded when no client address can be determined.
const UnknownClient = "unknown"

// AuditEvent records one repository open performed on behalf of a request.
type AuditEvent struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	Repository    string        `json:"repository"`
	Operation     Operation     `json:"operation"`
	User          string        `json:"user"`
	ClientAddress string        `json:"clientAddress"`
	UserAgent     string        `json:"userAgent"`
	Success       bool          `json:"success"`
	Duration      time.Duration `json:"duration"`
	Refs          []string      `json:"refs,omitempty"` // References updated by a completed push.
}

// AuditSink receives every recorded audit event after it has been logged.
type AuditSink interface {
	Observe(event AuditEvent)
}
