package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/crossrealm/xrealmd/pkg/store"
	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

// edgePrincipal resolves the {edge} path value (TARGET@HOP) to the krbtgt
// principal name the store keys on.
func edgePrincipal(raw string) (string, error) {
	edge, err := xrealm.ParseTrustEdge(raw)
	if err != nil {
		return "", err
	}
	return edge.Principal().String(), nil
}

type attributeView struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Rule  bool   `json:"rule"`
}

// handleListEdgeAttributes returns the edge's attributes with each key
// flagged as a recognized authorization rule or not. An unregistered edge is
// an empty list, not a 404: the engine treats both identically.
func (s *Server) handleListEdgeAttributes(w http.ResponseWriter, r *http.Request) {
	principal, err := edgePrincipal(r.PathValue("edge"))
	if err != nil {
		writeError(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	attrs, err := s.store.ListAttributes(principal)
	if err != nil {
		if errors.Is(err, store.ErrPrincipalNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"attributes": []attributeView{}})
			return
		}
		writeInternalError(w, r, s.logger, err, "failed to list attributes")
		return
	}

	views := make([]attributeView, 0, len(attrs))
	for _, a := range attrs {
		_, isRule := xrealm.ParseRule(a.Key)
		views = append(views, attributeView{Key: a.Key, Value: a.Value, Rule: isRule})
	}
	writeJSON(w, http.StatusOK, map[string]any{"attributes": views})
}

type setAttributeRequest struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// handleSetEdgeAttribute upserts one attribute, registering the edge
// principal on first use so a single call can grant the first rule.
func (s *Server) handleSetEdgeAttribute(w http.ResponseWriter, r *http.Request) {
	principal, err := edgePrincipal(r.PathValue("edge"))
	if err != nil {
		writeError(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	var body setAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, s.logger, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Key) == "" {
		writeError(w, r, s.logger, http.StatusBadRequest, "attribute key is required")
		return
	}

	err = s.store.SetAttribute(principal, body.Key, body.Value)
	if errors.Is(err, store.ErrPrincipalNotFound) {
		if err = s.store.AddPrincipal(principal); err == nil {
			err = s.store.SetAttribute(principal, body.Key, body.Value)
		}
	}
	if err != nil {
		writeInternalError(w, r, s.logger, err, "failed to set attribute")
		return
	}

	_, isRule := xrealm.ParseRule(body.Key)
	writeJSON(w, http.StatusOK, attributeView{Key: body.Key, Value: body.Value, Rule: isRule})
}

func (s *Server) handleDeleteEdgeAttribute(w http.ResponseWriter, r *http.Request) {
	principal, err := edgePrincipal(r.PathValue("edge"))
	if err != nil {
		writeError(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	key := r.PathValue("key")
	err = s.store.DeleteAttribute(principal, key)
	if errors.Is(err, store.ErrAttributeNotFound) || errors.Is(err, store.ErrPrincipalNotFound) {
		writeError(w, r, s.logger, http.StatusNotFound, "attribute not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, s.logger, err, "failed to delete attribute")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
