// Package api implements the xrealmd HTTP surface.
//
// The decision hook (POST /api/v1/decisions) is the hot path: the KDC host
// shim calls it once per cross-realm AS/TGS request and enforces the
// returned status. Everything else is the admin surface the xrctl CLI talks
// to: trust edge attributes, principal registration, and the decision audit
// trail.
package api
