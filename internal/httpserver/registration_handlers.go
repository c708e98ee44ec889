package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/veriport/veriport/internal/directory"
)

// handleRegistrationCreate is the only unauthenticated write endpoint. An
// application sits in pending until an admin approves or rejects it.
func (s *Server) handleRegistrationCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Mobile  string `json:"mobile"`
		Remarks string `json:"remarks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if name == "" || email == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("name and email required"))
		return
	}
	if !strings.Contains(email, "@") {
		s.respondError(w, http.StatusBadRequest, errors.New("invalid email"))
		return
	}

	if existing, err := s.directory.FindOfficerByEmail(r.Context(), email); err == nil && existing != nil {
		s.respondError(w, http.StatusConflict, errors.New("email already registered"))
		return
	}

	reg, err := s.directory.CreateRegistration(r.Context(), directory.Registration{
		Name:    name,
		Email:   email,
		Mobile:  strings.TrimSpace(req.Mobile),
		Remarks: strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Printf("registration received for %s (reference %s)", email, reg.Reference)
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"reference": reg.Reference,
		"status":    reg.Status,
	})
}
