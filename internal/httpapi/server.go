package httpapi

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
	"dbcheck/internal/db"
	"dbcheck/internal/logging"
	"dbcheck/internal/monitor"
	"dbcheck/internal/profile"
)

// Checker runs one connectivity check.
type Checker interface {
	Check(ctx context.Context, p profile.Profile, policy check.Policy) (check.Result, error)
}

// Store is the primary store access used by the record endpoints.
type Store interface {
	LatestConnectionTest(ctx context.Context) (db.ConnectionTest, error)
	CreateNamedTestRecord(ctx context.Context) (db.TestRecord, []db.TestRecord, error)
}

// Deps wires the server. Store, Availability and Ready may be nil; the
// endpoints that need them then answer 503.
type Deps struct {
	Log          *logging.Logger
	Checker      Checker
	Policies     check.Policies
	Primary      profile.Profile
	MSSQL        config.MSSQLConfig
	Store        Store
	Availability monitor.AvailabilityProvider
	Ready        func(context.Context) error
	AdminToken   string
}

type Server struct {
	log          *logging.Logger
	checker      Checker
	policies     check.Policies
	primary      profile.Profile
	mssql        config.MSSQLConfig
	store        Store
	availability monitor.AvailabilityProvider
	ready        func(context.Context) error
	r            chi.Router
	adminToken   string
	now          func() time.Time
}

const (
	maxRequestBodyBytes int64 = 1 << 20 // 1 MiB
	defaultWindow             = 5 * time.Minute
	maxWindow                 = monitor.SampleRetention
)

func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		log:          log,
		checker:      d.Checker,
		policies:     d.Policies,
		primary:      d.Primary,
		mssql:        d.MSSQL,
		store:        d.Store,
		availability: d.Availability,
		ready:        d.Ready,
		r:            chi.NewRouter(),
		adminToken:   strings.TrimSpace(d.AdminToken),
		now:          time.Now,
	}
	s.routes()
	return s
}

func (s *Server) Router() http.Handler { return s.r }

func (s *Server) routes() {
	s.r.Use(middleware.RequestID)
	s.r.Use(s.loggingMiddleware)
	s.r.Use(middleware.Recoverer)
	s.r.Get("/healthz", s.handleHealth)
	s.r.Get("/readyz", s.handleReady)
	s.r.Route("/v1/system", func(r chi.Router) {
		r.Get("/db-check", s.handlePrimaryCheck)
		r.Get("/mssql-check", s.handleMSSQLCheck)
		r.Get("/mssql-mcp-check", s.handleVersionCheck)
		r.Get("/connection-tests/latest", s.handleLatestConnectionTest)
		r.Get("/availability", s.handleAvailability)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/mssql-check", s.handleCustomCheck)
			r.Post("/orm-test", s.handleORMTest)
		})
	})
}

// authMiddleware guards endpoints that accept credentials or write rows. It
// is a no-op when no admin token is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			token = strings.TrimSpace(r.Header.Get("X-API-Key"))
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing API token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid API token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		logger := s.log.WithRequestID(reqID)
		ctx := logging.ContextWithLogger(r.Context(), logger)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ready(ctx); err != nil {
		logging.FromContext(r.Context(), s.log).Error("readyz failed", "error", err.Error())
		writeError(w, http.StatusServiceUnavailable, "not ready", map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePrimaryCheck(w http.ResponseWriter, r *http.Request) {
	res, err := s.checker.Check(r.Context(), s.primary, s.policies.Primary)
	s.writeResult(w, res, err)
}

func (s *Server) handleMSSQLCheck(w http.ResponseWriter, r *http.Request) {
	s.envCheck(w, r, s.policies.MSSQL)
}

func (s *Server) handleVersionCheck(w http.ResponseWriter, r *http.Request) {
	s.envCheck(w, r, s.policies.Version)
}

// envCheck runs policy against the configured MSSQL profile. In mock mode the
// profile is not resolved, so an unconfigured disabled target still answers.
func (s *Server) envCheck(w http.ResponseWriter, r *http.Request, policy check.Policy) {
	var p profile.Profile
	if !policy.MockEnabled {
		var err error
		p, err = profile.FromEnvironment(s.mssql)
		if err != nil {
			s.writeResult(w, check.Result{}, err)
			return
		}
	}
	res, err := s.checker.Check(r.Context(), p, policy)
	s.writeResult(w, res, err)
}

func (s *Server) handleCustomCheck(w http.ResponseWriter, r *http.Request) {
	var req profile.Request
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes), &req); err != nil {
		s.writeResult(w, check.Result{}, bodyError(err))
		return
	}
	p, err := profile.FromRequest(req)
	if err != nil {
		s.writeResult(w, check.Result{}, err)
		return
	}
	res, err := s.checker.Check(r.Context(), p, s.policies.Custom)
	s.writeResult(w, res, err)
}

func (s *Server) handleLatestConnectionTest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "primary database not configured", nil)
		return
	}
	ct, err := s.store.LatestConnectionTest(r.Context())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no connection test records", nil)
			return
		}
		logging.FromContext(r.Context(), s.log).Error("LatestConnectionTest failed", "error", err)
		writeDBError(w, err, "failed to read connection tests")
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (s *Server) handleORMTest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "primary database not configured", nil)
		return
	}
	inserted, all, err := s.store.CreateNamedTestRecord(r.Context())
	if err != nil {
		logging.FromContext(r.Context(), s.log).Error("CreateNamedTestRecord failed", "error", err)
		writeDBError(w, err, "failed to write test record")
		return
	}
	if all == nil {
		all = []db.TestRecord{}
	}
	writeJSON(w, http.StatusCreated, ormTestResponse{Inserted: inserted, AllRecords: all})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	window := defaultWindow
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxWindow {
			writeError(w, http.StatusBadRequest, "invalid window", map[string]string{"window": "must be a duration between 0 and 24h"})
			return
		}
		window = d
	}
	if s.availability == nil {
		writeError(w, http.StatusServiceUnavailable, "monitor not running", nil)
		return
	}
	resp := availabilityResponse{Window: window.String(), Targets: []targetAvailability{}}
	for _, target := range s.availability.Targets() {
		ratio, err := s.availability.Availability(r.Context(), target, window)
		if err != nil {
			logging.FromContext(r.Context(), s.log).Error("availability failed", "target", target, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to compute availability", nil)
			return
		}
		resp.Targets = append(resp.Targets, targetAvailability{Target: target, Availability: ratio})
	}
	writeJSON(w, http.StatusOK, resp)
}

var errEmptyBody = errors.New("request body is required")

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// bodyError turns a decode failure into a validation error without leaking
// decoder internals into the response.
func bodyError(err error) *profile.ValidationError {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return &profile.ValidationError{Fields: map[string]string{typeErr.Field: "must be of type " + typeErr.Type.String()}}
	case errors.As(err, &tooLarge):
		return &profile.ValidationError{Fields: map[string]string{"body": "too large"}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &profile.ValidationError{Fields: map[string]string{"body": "malformed JSON"}}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return &profile.ValidationError{Fields: map[string]string{field: "unknown field"}}
	case errors.Is(err, errEmptyBody):
		return &profile.ValidationError{Fields: map[string]string{"body": "required"}}
	default:
		return &profile.ValidationError{Fields: map[string]string{"body": "must be a single JSON object"}}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

func writeDBError(w http.ResponseWriter, err error, fallback string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			writeError(w, http.StatusConflict, pgErr.Message, nil)
			return
		case "42P01":
			writeError(w, http.StatusServiceUnavailable, "schema not migrated", nil)
			return
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, fallback, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, fallback, nil)
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type ormTestResponse struct {
	Inserted   db.TestRecord   `json:"inserted"`
	AllRecords []db.TestRecord `json:"all_records"`
}

type availabilityResponse struct {
	Window  string               `json:"window"`
	Targets []targetAvailability `json:"targets"`
}

type targetAvailability struct {
	Target       string  `json:"target"`
	Availability float64 `json:"availability"`
}
