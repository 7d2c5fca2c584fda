// Package audit emits cross-realm decisions to the local syslog daemon as
// RFC 5424 messages, matching how KDC deployments already collect their
// logs. It implements xrealm.DecisionLogger and slots into the
// MultiDecisionLogger composition alongside slog and store backends.
package audit

// Severity represents syslog severity levels per RFC 5424.
type Severity int

const (
	SeverityEmergency Severity = 0
	SeverityAlert     Severity = 1
	SeverityCritical  Severity = 2
	SeverityError     Severity = 3
	SeverityWarning   Severity = 4
	SeverityNotice    Severity = 5
	SeverityInfo      Severity = 6
	SeverityDebug     Severity = 7
)

// String returns the human-readable name for a severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a decision event in the syslog MSGID field.
type EventType string

const (
	EventDecisionAllow   EventType = "decision.allow"
	EventDecisionDeny    EventType = "decision.deny"
	EventDecisionMonitor EventType = "decision.monitor" // monitoring-mode would-deny
)

// SeverityFor maps a decision outcome to its syslog severity. Anything that
// was, or would have been, blocked is WARNING; grants are INFO. Unknown
// outcomes are treated as concerning.
func SeverityFor(outcome string) (EventType, Severity) {
	switch outcome {
	case "allow":
		return EventDecisionAllow, SeverityInfo
	case "deny":
		return EventDecisionDeny, SeverityWarning
	case "allow_logged":
		return EventDecisionMonitor, SeverityWarning
	default:
		return EventType("decision." + outcome), SeverityWarning
	}
}
