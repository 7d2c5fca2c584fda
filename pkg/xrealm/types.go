package xrealm

import (
	"fmt"
	"strings"
	"time"
)

// Principal identifies a Kerberos principal as a (name, realm) pair.
// Equality is exact string comparison on both fields; realm names are
// case-sensitive tokens.
type Principal struct {
	Name  string // Primary name, e.g. "alice" or "host/web01.example.com"
	Realm string // Realm, e.g. "EU.EXAMPLE.COM"
}

// String returns the canonical name@REALM form, or just the name when the
// realm is empty.
func (p Principal) String() string {
	if p.Realm == "" {
		return p.Name
	}
	return p.Name + "@" + p.Realm
}

// IsZero reports whether the principal is empty.
func (p Principal) IsZero() bool {
	return p.Name == "" && p.Realm == ""
}

// ParsePrincipal parses "name@REALM" into a Principal. The realm is taken
// after the last "@" so multi-component names like "host/web@EU.EXAMPLE.COM"
// parse correctly. A string without "@" yields a Principal with an empty
// realm.
func ParsePrincipal(s string) (Principal, error) {
	if s == "" {
		return Principal{}, fmt.Errorf("empty principal")
	}
	idx := strings.LastIndex(s, "@")
	if idx < 0 {
		return Principal{Name: s}, nil
	}
	name, realm := s[:idx], s[idx+1:]
	if name == "" {
		return Principal{}, fmt.Errorf("principal %q has no name component", s)
	}
	if realm == "" {
		return Principal{}, fmt.Errorf("principal %q has an empty realm", s)
	}
	return Principal{Name: name, Realm: realm}, nil
}

// TrustEdge identifies a direct cross-realm trust relationship: the krbtgt
// principal krbtgt/<TargetRealm>@<HopRealm>. TargetRealm is the destination
// realm; HopRealm is the realm one step back toward the client. For a
// transit path R3 -> R2 -> R1 the edge consulted at R1's KDC is always
// krbtgt/R1@R2, regardless of how many realms precede R2.
type TrustEdge struct {
	TargetRealm string
	HopRealm    string
}

// Principal returns the krbtgt principal representing this edge.
func (e TrustEdge) Principal() Principal {
	return Principal{Name: "krbtgt/" + e.TargetRealm, Realm: e.HopRealm}
}

// String returns the TARGET@HOP form used by the CLI and API.
func (e TrustEdge) String() string {
	return e.TargetRealm + "@" + e.HopRealm
}

// IsZero reports whether the edge is empty.
func (e TrustEdge) IsZero() bool {
	return e.TargetRealm == "" && e.HopRealm == ""
}

// ParseTrustEdge parses the "TARGET@HOP" edge form. Both realms must be
// non-empty.
func ParseTrustEdge(s string) (TrustEdge, error) {
	target, hop, ok := strings.Cut(s, "@")
	if !ok || target == "" || hop == "" {
		return TrustEdge{}, fmt.Errorf("invalid trust edge %q: want TARGET@HOP", s)
	}
	return TrustEdge{TargetRealm: target, HopRealm: hop}, nil
}

// Request carries everything the engine needs for one decision.
type Request struct {
	// Client is the requesting principal from the presented ticket.
	Client Principal

	// OriginRealm is the head of the realm transit path: the client's home
	// realm. Empty means the client realm (direct trust).
	OriginRealm string

	// Service is the requested service principal in the destination realm.
	Service Principal

	// Edge is the trust edge adjacent to the destination KDC. Resolving the
	// transit path down to this single edge is the host's job; the engine
	// never walks multiple edges.
	Edge TrustEdge
}

// Outcome is the terminal state of a decision.
type Outcome string

const (
	// OutcomeAllow grants the request.
	OutcomeAllow Outcome = "allow"
	// OutcomeDeny rejects the request; the host must surface a policy
	// rejection to the protocol layer.
	OutcomeDeny Outcome = "deny"
	// OutcomeAllowLogged grants the request in monitoring mode after a
	// non-match; a "would deny" line has been logged.
	OutcomeAllowLogged Outcome = "allow_logged"
)

// Reason classifies why a decision reached its outcome.
type Reason string

const (
	ReasonPreApproved Reason = "pre_approved" // origin realm is in the allowed set
	ReasonRuleMatch   Reason = "rule_match"   // an edge rule matched
	ReasonNoRule      Reason = "no_rule"      // no rule matched, enforcing
	ReasonWouldDeny   Reason = "would_deny"   // no rule matched, monitoring
)

// Decision is the result of one authorization check.
type Decision struct {
	Outcome  Outcome
	Reason   Reason
	Rule     string        // Storage form of the matched rule, if any
	Duration time.Duration // How long the check took
}

// Allowed reports whether the host should issue the ticket.
func (d Decision) Allowed() bool {
	return d.Outcome != OutcomeDeny
}

// Monitored reports whether this decision was an allow that enforcement
// would have denied.
func (d Decision) Monitored() bool {
	return d.Outcome == OutcomeAllowLogged
}
