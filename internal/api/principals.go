package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/crossrealm/xrealmd/pkg/store"
)

func (s *Server) handleListPrincipals(w http.ResponseWriter, r *http.Request) {
	principals, err := s.store.ListPrincipals()
	if err != nil {
		writeInternalError(w, r, s.logger, err, "failed to list principals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"principals": principals})
}

type addPrincipalRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddPrincipal(w http.ResponseWriter, r *http.Request) {
	var body addPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, s.logger, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, r, s.logger, http.StatusBadRequest, "principal name is required")
		return
	}

	if err := s.store.AddPrincipal(body.Name); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			writeError(w, r, s.logger, http.StatusConflict, err.Error())
			return
		}
		writeInternalError(w, r, s.logger, err, "failed to add principal")
		return
	}

	p, err := s.store.GetPrincipal(body.Name)
	if err != nil {
		writeInternalError(w, r, s.logger, err, "failed to read principal")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRemovePrincipal(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	err := s.store.RemovePrincipal(name)
	if errors.Is(err, store.ErrPrincipalNotFound) {
		writeError(w, r, s.logger, http.StatusNotFound, "principal not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, s.logger, err, "failed to remove principal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
