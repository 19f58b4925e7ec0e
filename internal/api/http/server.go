package httpapi

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/procsup/internal/api"
	"github.com/Paintersrp/procsup/internal/metrics"
	"github.com/Paintersrp/procsup/internal/supervisor"
)

const (
	defaultAddr            = "127.0.0.1:7663"
	defaultReadHeader      = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	maxRequestBody         = 1 << 20

	statusClientClosedRequest = 499
)

// Config controls construction of the API server.
type Config struct {
	Addr              string
	Controller        api.Controller
	Listener          net.Listener
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server wraps an http.Server exposing process supervision controls.
type Server struct {
	ctrl            api.Controller
	srv             *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
}

// NewServer constructs a Server with sane defaults.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if v := reflect.ValueOf(cfg.Controller); v.Kind() == reflect.Ptr && v.IsNil() {
		return nil, fmt.Errorf("controller is required: got nil %T", cfg.Controller)
	}
	addr := normalizeAddr(cfg.Addr)
	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = defaultReadHeader
	}
	server := &Server{
		ctrl:            cfg.Controller,
		srv:             srv,
		listener:        cfg.Listener,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if server.shutdownTimeout == 0 {
		server.shutdownTimeout = defaultShutdownTimeout
	}
	server.registerRoutes(mux)
	return server, nil
}

// Run starts serving until the provided context is cancelled.
func (s *Server) Run(ctx stdcontext.Context) error {
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	errCh := make(chan error, 1)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), s.shutdownTimeout)
			defer cancel()
			_ = s.srv.Shutdown(shutdownCtx)
		case <-stop:
		}
	}()

	go func() {
		var err error
		if s.listener != nil {
			err = s.srv.Serve(s.listener)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()

	err := <-errCh
	close(stop)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/cmd", s.handleCreate)
	mux.HandleFunc("/api/v1/wait/", s.handleWait)
	mux.HandleFunc("/api/v1/kill/", s.handleKill)
	mux.HandleFunc("/api/v1/processes", s.handleList)
	mux.HandleFunc("/api/v1/processes/", s.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.methodNotAllowed(w, http.MethodPut)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: read body: %v", api.ErrInvalidRequest, err))
		return
	}
	req, err := decodeCreateRequest(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.ctrl.Create(r.Context(), req)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"exec": req.Exec})
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	s.handleTerminal(w, r, "/api/v1/wait/", s.ctrl.Wait)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	s.handleTerminal(w, r, "/api/v1/kill/", s.ctrl.Kill)
}

// handleTerminal serves the blocking wait and kill routes. An optional
// timeout query parameter bounds how long the caller is suspended.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request, prefix string, op func(stdcontext.Context, uint64) (*api.ExitReport, error)) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	raw, id, err := parseID(r.URL.Path, prefix)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"id": raw})
		return
	}
	ctx := r.Context()
	if value := r.URL.Query().Get("timeout"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			s.writeErrorWithDetails(w, fmt.Errorf("%w: invalid timeout %q", api.ErrInvalidRequest, value), map[string]any{"id": raw})
			return
		}
		var cancel stdcontext.CancelFunc
		ctx, cancel = stdcontext.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := op(ctx, id)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"id": raw})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	result, err := s.ctrl.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	raw, id, err := parseID(r.URL.Path, "/api/v1/processes/")
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"id": raw})
		return
	}
	result, err := s.ctrl.Status(r.Context(), id)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"id": raw})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func parseID(path, prefix string) (string, uint64, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(path, prefix))
	id, err := supervisor.ParseID(raw)
	if err != nil {
		return raw, 0, err
	}
	return raw, uint64(id), nil
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Allow", method)
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Code:    "method_not_allowed",
		Message: fmt.Sprintf("method %s not allowed", method),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorWithDetails(w, err, nil)
}

func (s *Server) writeErrorWithDetails(w http.ResponseWriter, err error, extra map[string]any) {
	status, code := classifyError(err)
	details := map[string]any{
		"timestamp": time.Now().UTC(),
	}
	for k, v := range extra {
		details[k] = v
	}
	body := errorBody{
		Code:    code,
		Message: err.Error(),
		Details: details,
	}
	s.writeJSON(w, status, body)
}

func classifyError(err error) (int, string) {
	var spawnErr *supervisor.SpawnError
	switch {
	case errors.Is(err, stdcontext.Canceled):
		return statusClientClosedRequest, "context_canceled"
	case errors.Is(err, stdcontext.DeadlineExceeded):
		return http.StatusGatewayTimeout, "wait_timeout"
	case errors.Is(err, api.ErrProcessNotFound):
		return http.StatusNotFound, "process_not_found"
	case errors.Is(err, api.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.As(err, &spawnErr):
		return http.StatusUnprocessableEntity, "spawn_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func normalizeAddr(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return defaultAddr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// If parsing failed, trust caller.
		return addr
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
