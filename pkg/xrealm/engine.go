package xrealm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// AttributeSource reads the current attribute keys of a principal record.
// Implementations must return the latest administrative state on every call;
// the engine never caches across requests.
//
// Contract: an unknown principal or a principal without attributes is
// reported as an error wrapping ErrNotFound (or an empty slice). Any other
// error means storage trouble and makes the engine fail closed.
type AttributeSource interface {
	GetAttributes(ctx context.Context, principal Principal) ([]string, error)
}

// Config contains options for the Engine. It is read once at construction;
// changing policy requires building a new Engine (in practice, a restart).
type Config struct {
	// Enforcing selects the policy mode. nil defaults to enforcing, the
	// same as an explicit true; explicit false selects monitoring mode.
	Enforcing *bool

	// AllowedRealms lists pre-approved origin realms. Membership bypasses
	// rule lookup entirely and always authorizes, in both modes.
	AllowedRealms []string

	// Source reads trust edge attributes. Required.
	Source AttributeSource

	// Logger for structured decision logging. If nil, uses slog.Default().
	Logger *slog.Logger

	// Audit receives a DecisionEntry per decision. If nil, entries are
	// discarded.
	Audit DecisionLogger
}

// Engine evaluates cross-realm authorization requests. It holds only
// immutable policy state and is safe for concurrent use without locking.
type Engine struct {
	source    AttributeSource
	enforcing bool
	allowed   map[string]struct{}
	logger    *slog.Logger
	audit     DecisionLogger
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("xrealm: attribute source is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	audit := cfg.Audit
	if audit == nil {
		audit = NopDecisionLogger{}
	}

	enforcing := true
	if cfg.Enforcing != nil {
		enforcing = *cfg.Enforcing
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedRealms))
	for _, realm := range cfg.AllowedRealms {
		allowed[realm] = struct{}{}
	}

	return &Engine{
		source:    cfg.Source,
		enforcing: enforcing,
		allowed:   allowed,
		logger:    logger,
		audit:     audit,
	}, nil
}

// Enforcing reports whether denials block ticket issuance.
func (e *Engine) Enforcing() bool {
	return e.enforcing
}

// PreApprovedCount returns the number of configured pre-approved realms.
func (e *Engine) PreApprovedCount() int {
	return len(e.allowed)
}

// Decide evaluates one cross-realm request. Order:
//
//  1. Pre-approved origin realm: allow immediately, no edge lookup and no
//     denial logging for that realm.
//  2. Read the edge's current attributes and match the parsed rules against
//     the origin realm and client principal.
//  3. Matched: allow. Not matched: deny when enforcing; in monitoring mode
//     allow but log the "would deny" line with identifying detail.
//
// Decisions are stateless between calls; attribute changes between two
// identical requests can change the outcome. A storage failure is treated
// as "no entries found" (fail closed), never as an open gate.
func (e *Engine) Decide(ctx context.Context, req Request) Decision {
	start := time.Now()

	origin := req.OriginRealm
	if origin == "" {
		origin = req.Client.Realm
	}

	if _, ok := e.allowed[origin]; ok {
		return e.finish(ctx, req, origin, start, Decision{
			Outcome: OutcomeAllow,
			Reason:  ReasonPreApproved,
		})
	}

	keys, err := e.source.GetAttributes(ctx, req.Edge.Principal())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			// Fail closed: a storage outage must not grant cross-realm
			// trust. Surfaced only through logging; the request proceeds
			// to the ordinary non-match outcome.
			e.logger.Error("failed to read trust edge attributes, failing closed",
				"edge", req.Edge.String(),
				"error", err,
			)
		}
		keys = nil
	}

	rules := ParseRules(keys)
	if rule, ok := MatchAny(rules, origin, req.Client, req.Edge.HopRealm); ok {
		return e.finish(ctx, req, origin, start, Decision{
			Outcome: OutcomeAllow,
			Reason:  ReasonRuleMatch,
			Rule:    rule.Key(),
		})
	}

	if e.enforcing {
		return e.finish(ctx, req, origin, start, Decision{
			Outcome: OutcomeDeny,
			Reason:  ReasonNoRule,
		})
	}

	// Monitoring mode: grant the ticket but record what enforcement would
	// have blocked. External tooling greps for the "would deny" substring.
	e.logger.Warn(fmt.Sprintf("would deny %s for %s from %s",
		req.Client, req.Service, req.Edge.HopRealm),
		"client", req.Client.String(),
		"origin_realm", origin,
		"service", req.Service.String(),
		"edge", req.Edge.String(),
	)
	return e.finish(ctx, req, origin, start, Decision{
		Outcome: OutcomeAllowLogged,
		Reason:  ReasonWouldDeny,
	})
}

// finish stamps the duration and records the decision before returning it.
func (e *Engine) finish(ctx context.Context, req Request, origin string, start time.Time, d Decision) Decision {
	d.Duration = time.Since(start)

	entry := DecisionEntry{
		Timestamp:   start,
		RequestID:   RequestIDFromContext(ctx),
		Client:      req.Client.String(),
		OriginRealm: origin,
		Service:     req.Service.String(),
		Edge:        req.Edge.String(),
		Outcome:     string(d.Outcome),
		Reason:      string(d.Reason),
		Rule:        d.Rule,
		Enforcing:   e.enforcing,
		DurationUS:  d.Duration.Microseconds(),
	}
	if err := e.audit.LogDecision(ctx, entry); err != nil {
		e.logger.Error("decision audit failed",
			"edge", entry.Edge,
			"outcome", entry.Outcome,
			"error", err,
		)
	}
	return d
}
