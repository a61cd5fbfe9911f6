package railsight

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/railsight/railsight/internal/audit"
)

// AuditEvent is a structured audit record emitted by the gateway.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the gateway's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

const (
	auditEventLoginSuccess  = "login_success"
	auditEventLoginFailure  = "login_failure"
	auditEventTokenRejected = "token_rejected"
	auditEventLogout        = "logout"
)

func (g *Gateway) emitAudit(ctx context.Context, eventType, userID string, success bool, cause error) {
	if g == nil || g.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	g.audit.Emit(ctx, event)
}
