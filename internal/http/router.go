package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karming-leong/datacentric-assingment/internal/service/auth"
	"github.com/karming-leong/datacentric-assingment/internal/service/item"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	items    item.Service
	dbHealth func(context.Context) error
	debug    bool

	registry       *prometheus.Registry
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

const (
	healthCheckTimeout = 2 * time.Second
	maxBodyBytes       = 1 << 20

	msgUserCreated = "User created successfully"
	msgItemDeleted = "Item deleted successfully"
)

// NewRouter assembles routes with dependencies. When debug is set, internal
// error causes are included in 5xx responses.
func NewRouter(logger *slog.Logger, authSvc auth.Service, itemSvc item.Service, dbHealth func(context.Context) error, debug bool) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		items:    itemSvc,
		dbHealth: dbHealth,
		debug:    debug,
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.mux.HandleFunc("/auth/register", r.audit("/auth/register", r.handleRegister))
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.handleLogin))
	r.mux.HandleFunc("/items", r.audit("/items", r.requireAuth(r.handleItems)))
	r.mux.HandleFunc("/items/", r.audit("/items/", r.requireAuth(r.handleItemSubroutes)))
	r.mux.HandleFunc("/", r.audit("other", r.handleUnknown))
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsPayload
	if !r.decodeJSON(w, req, &payload) {
		return
	}
	if _, err := r.auth.Register(req.Context(), payload.Username, payload.Password); err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeMessage(w, http.StatusCreated, msgUserCreated)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsPayload
	if !r.decodeJSON(w, req, &payload) {
		return
	}
	token, err := r.auth.Login(req.Context(), payload.Username, payload.Password)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token.Value})
}

func (r *Router) handleItems(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	identity, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	var payload item.CreateInput
	if !r.decodeJSON(w, req, &payload) {
		return
	}
	created, err := r.items.Create(req.Context(), identity, payload)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleItemSubroutes(w http.ResponseWriter, req *http.Request) {
	segment := strings.TrimPrefix(req.URL.Path, "/items/")
	if segment == "" || strings.Contains(segment, "/") {
		r.notFound(w)
		return
	}
	if segment == "search" {
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		r.handleSearch(w, req)
		return
	}
	switch req.Method {
	case http.MethodGet:
		r.handleListByLevel(w, req, segment)
	case http.MethodPut:
		r.handleUpdateItem(w, req, segment)
	case http.MethodDelete:
		r.handleDeleteItem(w, req, segment)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleListByLevel(w http.ResponseWriter, req *http.Request, raw string) {
	identity, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "level must be an integer")
		return
	}
	items, err := r.items.ListByLevel(req.Context(), identity, level)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	identity, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	query := req.URL.Query()
	input := item.SearchInput{
		Query: query.Get("q"),
		Type:  query.Get("type"),
		Sort:  query.Get("sort"),
	}
	if raw := strings.TrimSpace(query.Get("level")); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "level must be an integer")
			return
		}
		input.Level = &level
	}
	items, err := r.items.Search(req.Context(), identity, input)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (r *Router) handleUpdateItem(w http.ResponseWriter, req *http.Request, itemID string) {
	identity, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	var payload item.UpdateInput
	if !r.decodeJSON(w, req, &payload) {
		return
	}
	updated, err := r.items.Update(req.Context(), identity, itemID, payload)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeleteItem(w http.ResponseWriter, req *http.Request, itemID string) {
	identity, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	if err := r.items.Delete(req.Context(), identity, itemID); err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeMessage(w, http.StatusOK, msgItemDeleted)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) handleUnknown(w http.ResponseWriter, _ *http.Request) {
	r.notFound(w)
}

// decodeJSON reads a bounded JSON body into dst and answers 400 on failure.
func (r *Router) decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("panic recovered", "panic", fmt.Sprint(rec), "path", req.URL.Path)
				if recorder.status == 0 {
					writeError(recorder, http.StatusInternalServerError, errorMessageInternal)
				}
			}
			r.logRequest(recorder, req, route, time.Since(start))
		}()
		next(recorder, req)
	}
}

func (r *Router) logRequest(recorder *statusRecorder, req *http.Request, route string, duration time.Duration) {
	status := recorder.status
	if status == 0 {
		status = http.StatusOK
	}
	ctx := recorder.ctx
	if ctx == nil {
		ctx = req.Context()
	}
	r.recordRequestMetrics(req.Method, route, status, duration)

	actor := "anonymous"
	fields := []any{
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
		"bytes", recorder.bytes,
		"duration_ms", duration.Milliseconds(),
	}
	if ip := clientIP(req); ip != "" {
		fields = append(fields, "ip", ip)
	}
	if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
		fields = append(fields, "request_id", reqID)
	}
	if identity, ok := identityFromContext(ctx); ok {
		actor = "user"
		fields = append(fields, "user_id", identity.UserID)
	}
	fields = append(fields, "actor", actor)

	switch {
	case status >= http.StatusInternalServerError:
		r.logger.Error("http_request", fields...)
	case status >= http.StatusBadRequest:
		r.logger.Warn("http_request", fields...)
	default:
		r.logger.Info("http_request", fields...)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) missingIdentity(w http.ResponseWriter, req *http.Request) {
	r.logger.Error("auth context missing", "path", req.URL.Path)
	r.writeAppError(w, req, errors.New("authorization context missing"))
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
