// Package xrealm decides whether a cross-realm ticket-granting request may
// proceed through a given trust edge.
//
// This package is the single source of truth for cross-realm authorization.
// No cross-realm decision should be made outside the Engine.Decide method.
//
// # Rule Model
//
// Authorization is expressed as string attributes on the trust edge's krbtgt
// principal, using the reserved "xr:" prefix:
//   - xr:@REALM       authorizes every client whose origin realm is REALM
//   - xr:name         authorizes name@<hop-realm> (the edge's own realm)
//   - xr:name@REALM   authorizes exactly that principal
//
// Attribute values are ignored; only key existence matters. Keys without the
// prefix, or with an empty remainder, are skipped.
//
// # Enforcing and Monitoring
//
// The engine runs in one of two modes, fixed at construction:
//   - enforcing (default): a request with no matching rule is denied
//   - monitoring: the request is allowed, and a "would deny" line is logged
//     so operators can audit what enforcement would block
//
// Realms listed in Config.AllowedRealms are pre-approved: they bypass rule
// lookup entirely and are allowed in both modes.
//
// # Usage
//
//	enf := false
//	engine, err := xrealm.NewEngine(xrealm.Config{
//		Enforcing:     &enf,
//		AllowedRealms: []string{"CORP.EXAMPLE.COM"},
//		Source:        attrStore,
//	})
//
//	decision := engine.Decide(ctx, xrealm.Request{
//		Client:  xrealm.Principal{Name: "alice", Realm: "EU.EXAMPLE.COM"},
//		Service: xrealm.Principal{Name: "host/web01", Realm: "US.EXAMPLE.COM"},
//		Edge:    xrealm.TrustEdge{TargetRealm: "US.EXAMPLE.COM", HopRealm: "EU.EXAMPLE.COM"},
//	})
//
// The engine holds no mutable state after construction and is safe for
// concurrent use. Every decision re-reads the edge's attributes, so
// administrative changes take effect on the next request without a restart.
package xrealm
