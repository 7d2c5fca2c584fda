package xrealm

import (
	"context"
	"log/slog"
	"time"
)

// DecisionEntry represents a single cross-realm decision for audit logging.
// Every decision the engine produces flows through this structure.
type DecisionEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	Client      string    `json:"client"`
	OriginRealm string    `json:"origin_realm"`
	Service     string    `json:"service"`
	Edge        string    `json:"edge"`
	Outcome     string    `json:"outcome"` // "allow", "deny" or "allow_logged"
	Reason      string    `json:"reason"`
	Rule        string    `json:"rule,omitempty"` // matched rule, storage form
	Enforcing   bool      `json:"enforcing"`
	DurationUS  int64     `json:"duration_us"`
}

// DecisionLogger records decisions for compliance and forensics.
type DecisionLogger interface {
	// LogDecision records one decision. Implementations must not block the
	// request path; failures are the implementation's problem to report.
	LogDecision(ctx context.Context, entry DecisionEntry) error
}

// SlogDecisionLogger writes decisions to structured logging. Use this for
// JSON log output compatible with SIEM/log aggregation tools.
type SlogDecisionLogger struct {
	logger *slog.Logger
}

// NewSlogDecisionLogger creates a decision logger that writes to slog.
func NewSlogDecisionLogger(logger *slog.Logger) *SlogDecisionLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogDecisionLogger{logger: logger}
}

// LogDecision writes one decision to structured logging. Denials and
// monitored non-matches log at WARN, everything else at INFO.
func (l *SlogDecisionLogger) LogDecision(ctx context.Context, entry DecisionEntry) error {
	level := slog.LevelInfo
	if entry.Outcome != string(OutcomeAllow) {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event", "cross_realm_decision"),
		slog.Time("timestamp", entry.Timestamp),
		slog.String("client", entry.Client),
		slog.String("origin_realm", entry.OriginRealm),
		slog.String("service", entry.Service),
		slog.String("edge", entry.Edge),
		slog.String("outcome", entry.Outcome),
		slog.String("reason", entry.Reason),
		slog.Bool("enforcing", entry.Enforcing),
		slog.Int64("duration_us", entry.DurationUS),
	}
	if entry.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", entry.RequestID))
	}
	if entry.Rule != "" {
		attrs = append(attrs, slog.String("rule", entry.Rule))
	}

	l.logger.LogAttrs(ctx, level, "cross-realm decision", attrs...)
	return nil
}

// DecisionStore is the persistence interface for decision entries. Matches
// the method on pkg/store.Store that the logger needs.
type DecisionStore interface {
	InsertDecisionEntry(entry *DecisionEntry) (int64, error)
}

// StoreDecisionLogger writes decisions to the store's decision log.
type StoreDecisionLogger struct {
	store DecisionStore
}

// NewStoreDecisionLogger creates a decision logger backed by the store.
func NewStoreDecisionLogger(store DecisionStore) *StoreDecisionLogger {
	return &StoreDecisionLogger{store: store}
}

// LogDecision persists the decision entry.
func (l *StoreDecisionLogger) LogDecision(_ context.Context, entry DecisionEntry) error {
	_, err := l.store.InsertDecisionEntry(&entry)
	return err
}

// MultiDecisionLogger fans decisions out to several loggers.
type MultiDecisionLogger struct {
	loggers []DecisionLogger
}

// NewMultiDecisionLogger creates a logger that writes to every destination.
func NewMultiDecisionLogger(loggers ...DecisionLogger) *MultiDecisionLogger {
	return &MultiDecisionLogger{loggers: loggers}
}

// LogDecision writes to all configured loggers and returns the first error.
func (l *MultiDecisionLogger) LogDecision(ctx context.Context, entry DecisionEntry) error {
	var firstErr error
	for _, logger := range l.loggers {
		if err := logger.LogDecision(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NopDecisionLogger discards all entries. Use for testing.
type NopDecisionLogger struct{}

// LogDecision does nothing.
func (NopDecisionLogger) LogDecision(context.Context, DecisionEntry) error { return nil }

type requestIDKey struct{}

// WithRequestID attaches a correlation ID to the context so decisions made
// during the request carry it in their audit entries.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the correlation ID, or "" if none was set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
