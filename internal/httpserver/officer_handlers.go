package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veriport/veriport/internal/ledger"
	"github.com/veriport/veriport/internal/lookup"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())
	payload := map[string]any{"officer": toOfficerPayload(info.officer)}
	if info.officer.PlanID != nil {
		plan, err := s.directory.GetPlan(r.Context(), *info.officer.PlanID)
		if err == nil {
			payload["plan"] = toPlanPayload(plan)
		}
	}
	summary, err := s.ledger.Summary(r.Context(), info.officer.ID)
	if err == nil {
		payload["usage"] = summary
	}
	s.respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())
	if info.officer.PlanID == nil {
		s.respondJSON(w, http.StatusOK, map[string]any{"capabilities": []map[string]any{}})
		return
	}
	caps, err := s.directory.ListEnabledCapabilities(r.Context(), *info.officer.PlanID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	resp := make([]map[string]any, 0, len(caps))
	for _, c := range caps {
		resp = append(resp, toEnabledCapabilityPayload(c))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"capabilities": resp})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("capability key required"))
		return
	}
	var req struct {
		Fields  map[string]string `json:"fields"`
		Consent bool              `json:"consent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Fields) == 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("fields required"))
		return
	}
	if !req.Consent {
		s.respondError(w, http.StatusBadRequest, errors.New("consent required"))
		return
	}

	outcome, err := s.lookups.Invoke(r.Context(), lookup.Request{
		OfficerID:     info.officer.ID,
		CapabilityKey: key,
		Fields:        req.Fields,
		Consent:       req.Consent,
	})
	if err != nil {
		s.respondLookupError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())
	txns, err := s.ledger.ListTransactions(r.Context(), info.officer.ID, queryLimit(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())
	filter := ledger.QueryFilter{
		OfficerID:     info.officer.ID,
		CapabilityKey: strings.TrimSpace(r.URL.Query().Get("capability")),
		Status:        ledger.QueryStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Limit:         queryLimit(r),
	}
	logs, err := s.ledger.ListQueries(r.Context(), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"queries": logs})
}

func queryLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 50
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
