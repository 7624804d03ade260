// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"time"

	"go.uber.org/zap"
)

// EventType categorizes security-relevant events for filtering and alerting.
type EventType string

const (
	// EventAuthFailure is logged when a request carries no valid token.
	EventAuthFailure EventType = "auth_failure"
	// EventMasterOpDenied is logged when a non-master attempts an admin operation.
	EventMasterOpDenied EventType = "master_op_denied"
	// EventAnalysisTriggered is logged when a round analysis is started.
	EventAnalysisTriggered EventType = "analysis_triggered"
	// EventCaseDeleted is logged when a case and its history are removed.
	EventCaseDeleted EventType = "case_deleted"
)

// Event represents an auditable security event with the context a SIEM
// needs for ingestion and analysis.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	Subject   string    `json:"subject,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Path      string    `json:"path,omitempty"`
	Details   any       `json:"details,omitempty"`
	Severity  string    `json:"severity"` // info, warning, critical
}

// Auditor logs security events for SIEM consumption.
type Auditor struct {
	logger *zap.Logger
}

// NewAuditor creates a new auditor with a dedicated logger namespace so
// audit lines are easy to filter downstream.
func NewAuditor(logger *zap.Logger) *Auditor {
	return &Auditor{
		logger: logger.Named("security_audit"),
	}
}

// Record logs one security event. A nil auditor is a no-op so callers can
// leave auditing unconfigured in tests.
func (a *Auditor) Record(ev Event) {
	if a == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Severity == "" {
		ev.Severity = "info"
	}

	fields := []zap.Field{
		zap.Time("timestamp", ev.Timestamp),
		zap.String("event_type", string(ev.EventType)),
		zap.String("severity", ev.Severity),
	}
	if ev.Subject != "" {
		fields = append(fields, zap.String("subject", ev.Subject))
	}
	if ev.ClientIP != "" {
		fields = append(fields, zap.String("client_ip", ev.ClientIP))
	}
	if ev.Path != "" {
		fields = append(fields, zap.String("path", ev.Path))
	}
	if ev.Details != nil {
		fields = append(fields, zap.Any("details", ev.Details))
	}

	switch ev.Severity {
	case "critical":
		a.logger.Error("Security event", fields...)
	case "warning":
		a.logger.Warn("Security event", fields...)
	default:
		a.logger.Info("Security event", fields...)
	}
}
