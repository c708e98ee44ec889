// Package httpserver exposes the officer portal REST API.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/veriport/veriport/internal/adapter"
	"github.com/veriport/veriport/internal/auth"
	"github.com/veriport/veriport/internal/directory"
	"github.com/veriport/veriport/internal/entitlement"
	"github.com/veriport/veriport/internal/health"
	"github.com/veriport/veriport/internal/ledger"
	"github.com/veriport/veriport/internal/lookup"
	"github.com/veriport/veriport/internal/metrics"
	"github.com/veriport/veriport/internal/version"
)

const sessionCookie = "veriport_session"

// Params carries the dependencies a Server needs.
type Params struct {
	Directory    directory.Store
	Ledger       ledger.Store
	Auth         *auth.Manager
	Lookups      *lookup.Service
	Metrics      *metrics.Collector
	Health       *health.Checker
	Logger       *log.Logger
	AuthDisabled bool
	SessionTTL   time.Duration
	CORSOrigins  []string
}

// Server exposes REST endpoints for the officer portal.
type Server struct {
	directory    directory.Store
	ledger       ledger.Store
	auth         *auth.Manager
	lookups      *lookup.Service
	metrics      *metrics.Collector
	health       *health.Checker
	logger       *log.Logger
	authDisabled bool
	sessionTTL   time.Duration
	corsOrigins  []string
}

// New constructs a Server with the required dependencies.
func New(p Params) *Server {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	collector := p.Metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}
	ttl := p.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Server{
		directory:    p.Directory,
		ledger:       p.Ledger,
		auth:         p.Auth,
		lookups:      p.Lookups,
		metrics:      collector,
		health:       p.Health,
		logger:       logger,
		authDisabled: p.AuthDisabled,
		sessionTTL:   ttl,
		corsOrigins:  p.CORSOrigins,
	}
}

// Router returns a configured chi router for embedding in HTTP servers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}
	r.Use(s.countRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.wrapAdmin(s.handleMetrics))

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/login", s.handleAuthLogin)
		api.Post("/auth/logout", s.handleAuthLogout)
		api.Post("/registrations", s.handleRegistrationCreate)

		api.Group(func(private chi.Router) {
			private.Use(s.sessionMiddleware)
			private.Get("/profile", s.handleProfile)
			private.Get("/capabilities", s.handleCapabilities)
			private.Post("/lookups/{key}", s.handleLookup)
			private.Get("/transactions", s.handleTransactions)
			private.Get("/queries", s.handleQueries)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(s.sessionMiddleware)
			admin.Use(s.requireAdmin)
			admin.Get("/officers", s.handleOfficerList)
			admin.Post("/officers", s.handleOfficerCreate)
			admin.Get("/officers/{id}", s.handleOfficerGet)
			admin.Patch("/officers/{id}", s.handleOfficerUpdate)
			admin.Delete("/officers/{id}", s.handleOfficerDelete)
			admin.Post("/officers/{id}/status", s.handleOfficerStatus)
			admin.Post("/officers/{id}/credits", s.handleOfficerCredits)
			admin.Post("/officers/{id}/password", s.handleOfficerPassword)

			admin.Get("/plans", s.handlePlanList)
			admin.Post("/plans", s.handlePlanCreate)
			admin.Patch("/plans/{id}", s.handlePlanUpdate)
			admin.Delete("/plans/{id}", s.handlePlanDelete)
			admin.Get("/plans/{id}/capabilities", s.handlePlanCapabilityList)
			admin.Put("/plans/{id}/capabilities/{capID}", s.handlePlanCapabilitySet)

			admin.Get("/capabilities", s.handleCapabilityList)
			admin.Post("/capabilities", s.handleCapabilityCreate)
			admin.Patch("/capabilities/{id}", s.handleCapabilityUpdate)
			admin.Delete("/capabilities/{id}", s.handleCapabilityDelete)
			admin.Post("/capabilities/{id}/key-status", s.handleCapabilityKeyStatus)

			admin.Get("/registrations", s.handleRegistrationList)
			admin.Post("/registrations/{id}/approve", s.handleRegistrationApprove)
			admin.Post("/registrations/{id}/reject", s.handleRegistrationReject)

			admin.Get("/queries", s.handleAdminQueries)
			admin.Get("/transactions", s.handleAdminTransactions)
			admin.Get("/summary", s.handleAdminSummary)
		})
	})

	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.Method + " " + routePattern(r)
		s.metrics.RecordRequestStart(endpoint)
		started := time.Now()
		next.ServeHTTP(w, r)
		s.metrics.RecordRequestEnd(endpoint)
		s.metrics.RecordRequest(endpoint, time.Since(started))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type sessionContextKey struct{}

type sessionInfo struct {
	officer *directory.Officer
}

func sessionFromContext(ctx context.Context) *sessionInfo {
	info, _ := ctx.Value(sessionContextKey{}).(*sessionInfo)
	return info
}

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := s.authenticateRequest(r)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticateRequest(r *http.Request) (*sessionInfo, error) {
	if s.authDisabled {
		root, err := s.directory.FindOfficerByEmail(r.Context(), rootAdminEmail(r))
		if err == nil && root != nil {
			return &sessionInfo{officer: root}, nil
		}
		return nil, errors.New("auth disabled but no root admin configured")
	}

	if s.auth == nil {
		return nil, errors.New("session manager unavailable")
	}
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			return nil, errors.New("missing session")
		}
		token = cookie.Value
	}
	session, err := s.auth.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	officer, err := s.directory.GetOfficer(r.Context(), session.OfficerID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, errors.New("officer not found")
		}
		return nil, err
	}
	if officer.Status != directory.StatusActive {
		return nil, errors.New("account suspended")
	}
	return &sessionInfo{officer: officer}, nil
}

// rootAdminEmail lets dev setups with auth disabled pick the acting account.
func rootAdminEmail(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Officer-Email")); v != "" {
		return v
	}
	return "root@localhost"
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := sessionFromContext(r.Context())
		if info == nil || info.officer == nil || !isAdmin(info.officer.Role) {
			s.respondError(w, http.StatusForbidden, errors.New("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) wrapAdmin(fn http.HandlerFunc) http.HandlerFunc {
	handler := s.sessionMiddleware(s.requireAdmin(fn))
	return handler.ServeHTTP
}

func isAdmin(role directory.Role) bool {
	return role == directory.RoleRootAdmin || role == directory.RoleAdmin
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":  "ok",
		"version": version.Info(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if s.health != nil {
		overall, components := s.health.Check(r.Context())
		payload["components"] = components
		if overall != health.StatusHealthy {
			payload["status"] = string(overall)
			status = http.StatusServiceUnavailable
		}
	}
	s.respondJSON(w, status, payload)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(metrics.FormatPrometheus(s.metrics.GetSnapshot())))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	if status >= http.StatusInternalServerError {
		s.metrics.RecordError(http.StatusText(status))
	}
	s.respondJSON(w, status, map[string]any{"error": err.Error()})
}

// respondLookupError maps workflow failures onto HTTP statuses.
func (s *Server) respondLookupError(w http.ResponseWriter, err error) {
	var notEntitled *entitlement.NotEntitledError
	var vendorErr *adapter.Error
	var ledgerErr *lookup.LedgerWriteError
	switch {
	case errors.As(err, &notEntitled):
		s.respondError(w, http.StatusForbidden, err)
	case errors.Is(err, directory.ErrInsufficientCredits):
		s.respondError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, lookup.ErrRateLimited):
		s.respondError(w, http.StatusTooManyRequests, err)
	case errors.As(err, &vendorErr):
		s.respondError(w, http.StatusBadGateway, err)
	case errors.As(err, &ledgerErr):
		s.respondError(w, http.StatusInternalServerError, errors.New("lookup could not be recorded"))
	default:
		s.respondError(w, http.StatusInternalServerError, err)
	}
}
