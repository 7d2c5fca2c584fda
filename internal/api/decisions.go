package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

// decisionRequest is the body of the per-request decision hook. The edge may
// be given structured or as the compact "TARGET@HOP" string.
type decisionRequest struct {
	Client      string `json:"client"`
	Service     string `json:"service"`
	OriginRealm string `json:"origin_realm,omitempty"`
	Edge        struct {
		TargetRealm string `json:"target_realm"`
		HopRealm    string `json:"hop_realm"`
	} `json:"edge"`
	EdgeCompact string `json:"edge_compact,omitempty"`
}

type decisionResponse struct {
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason"`
	Rule       string `json:"rule,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	DurationUS int64  `json:"duration_us"`
}

// handleDecide is the hot path: one call per cross-realm ticket request.
// Allow and allow_logged return 200 with the decision; deny returns 403 with
// a generic policy rejection so rule contents are never disclosed to the
// requesting side.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var body decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, s.logger, http.StatusBadRequest, "invalid JSON body")
		return
	}

	client, err := xrealm.ParsePrincipal(body.Client)
	if err != nil || client.Realm == "" {
		writeError(w, r, s.logger, http.StatusBadRequest, "client must be name@REALM")
		return
	}
	service, err := xrealm.ParsePrincipal(body.Service)
	if err != nil || service.Realm == "" {
		writeError(w, r, s.logger, http.StatusBadRequest, "service must be name@REALM")
		return
	}

	edge := xrealm.TrustEdge{
		TargetRealm: body.Edge.TargetRealm,
		HopRealm:    body.Edge.HopRealm,
	}
	if edge.IsZero() && body.EdgeCompact != "" {
		edge, err = xrealm.ParseTrustEdge(body.EdgeCompact)
		if err != nil {
			writeError(w, r, s.logger, http.StatusBadRequest, err.Error())
			return
		}
	}
	if edge.TargetRealm == "" || edge.HopRealm == "" {
		writeError(w, r, s.logger, http.StatusBadRequest, "edge requires target_realm and hop_realm")
		return
	}

	// Same-realm requests never cross a trust edge. The host should not have
	// invoked the hook; tell it so instead of producing a meaningless
	// decision.
	if client.Realm == edge.TargetRealm {
		writeError(w, r, s.logger, http.StatusBadRequest, "client realm equals edge target realm: not a cross-realm request")
		return
	}

	decision := s.engine.Decide(r.Context(), xrealm.Request{
		Client:      client,
		OriginRealm: body.OriginRealm,
		Service:     service,
		Edge:        edge,
	})

	if !decision.Allowed() {
		writeJSON(w, xrealm.ErrPolicyRejected.HTTPStatus(), map[string]string{
			"error": xrealm.ErrPolicyRejected.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		Outcome:    string(decision.Outcome),
		Reason:     string(decision.Reason),
		Rule:       decision.Rule,
		RequestID:  xrealm.RequestIDFromContext(r.Context()),
		DurationUS: decision.Duration.Microseconds(),
	})
}

// handleDecisionLog returns recent decision audit entries, newest first.
func (s *Server) handleDecisionLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, s.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.store.ListDecisionEntries(limit)
	if err != nil {
		writeInternalError(w, r, s.logger, err, "failed to list decisions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
