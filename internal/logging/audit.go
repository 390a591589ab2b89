package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one auditable gateway event.
type AuditEventType string

const (
	AuditSearchStart    AuditEventType = "search_start"
	AuditSearchComplete AuditEventType = "search_complete"
	AuditSearchError    AuditEventType = "search_error"
	AuditLoginAttempt   AuditEventType = "login_attempt"
	AuditLoginRejected  AuditEventType = "login_rejected"
	AuditBrowserLaunch  AuditEventType = "browser_launch"
)

// AuditEvent is one structured audit record. Secrets never appear here.
type AuditEvent struct {
	Type      AuditEventType
	Source    string
	Username  string
	RequestID string
	Results   int
	Duration  time.Duration
	ErrorKind string
	Message   string
}

// Audit writes an event to the audit category as typed zap fields.
func Audit(ev AuditEvent) {
	if !IsCategoryEnabled(CategoryAudit) {
		return
	}
	fields := []zap.Field{
		zap.String("event", string(ev.Type)),
		zap.String("source", ev.Source),
	}
	if ev.Username != "" {
		fields = append(fields, zap.String("username", ev.Username))
	}
	if ev.RequestID != "" {
		fields = append(fields, zap.String("request_id", ev.RequestID))
	}
	if ev.Type == AuditSearchComplete {
		fields = append(fields, zap.Int("results", ev.Results))
	}
	if ev.Duration > 0 {
		fields = append(fields, zap.Int64("elapsed_ms", ev.Duration.Milliseconds()))
	}
	if ev.ErrorKind != "" {
		fields = append(fields, zap.String("error_kind", ev.ErrorKind))
	}
	L().Named(string(CategoryAudit)).Info(ev.Message, fields...)
}
