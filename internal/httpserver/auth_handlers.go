package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/veriport/veriport/internal/auth"
	"github.com/veriport/veriport/internal/directory"
)

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.respondError(w, http.StatusNotImplemented, errors.New("auth disabled"))
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("email and password required"))
		return
	}

	officer, err := s.directory.FindOfficerByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			s.respondError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
			return
		}
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	hash, err := s.directory.PasswordHash(r.Context(), officer.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !auth.CheckPassword(hash, req.Password) {
		s.respondError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	if officer.Status != directory.StatusActive {
		s.respondError(w, http.StatusForbidden, errors.New("account suspended"))
		return
	}

	token, expires := s.auth.IssueToken(officer.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	s.respondJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
		"officer":    toOfficerPayload(officer),
	})
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "logged out"})
}
