// Package api serves the device over HTTP using the Particle cloud API shapes
// (functions via POST, variables via GET) plus the Alexa gateway.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/stripd/internal/alexa"
	"github.com/dokzlo13/stripd/internal/controller"
	"github.com/dokzlo13/stripd/internal/device"
	"github.com/dokzlo13/stripd/internal/ledger"
)

// MaxArgLength is the longest function argument accepted, as on the Particle cloud.
const MaxArgLength = 622

const maxBodyBytes = 64 << 10

// History is the read side of the command ledger.
type History interface {
	Recent(limit int) ([]ledger.Entry, error)
}

// Options configures a Server.
type Options struct {
	Token     string
	RateLimit float64
	// History is optional; without it the events endpoint answers 404.
	History History
}

// Server is the HTTP front of one device.
type Server struct {
	addr       string
	dev        *device.Device
	gateway    *alexa.Gateway
	history    History
	token      string
	limiter    *rate.Limiter
	httpServer *http.Server
}

// NewServer creates a server for dev listening on host:port.
func NewServer(host string, port int, dev *device.Device, opts Options) *Server {
	s := &Server{
		addr:    fmt.Sprintf("%s:%d", host, port),
		dev:     dev,
		gateway: alexa.NewGateway(dev),
		history: opts.History,
		token:   opts.Token,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.Handle("GET /v1/devices/{id}", s.authorized(s.handleInfo))
	mux.Handle("GET /v1/devices/{id}/events", s.authorized(s.handleEvents))
	mux.Handle("GET /v1/devices/{id}/{name}", s.authorized(s.handleVariable))
	mux.Handle("POST /v1/devices/{id}/{name}", s.authorized(s.limited(s.handleFunction)))
	mux.Handle("POST /alexa", s.limited(s.handleAlexa))

	return requestID(mux)
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if !s.knownDevice(w, r) {
		return
	}

	variables := make(map[string]string)
	for _, name := range s.dev.Variables() {
		variables[name] = "int32"
	}
	writeJSON(w, http.StatusOK, deviceInfo{
		ID:        s.dev.ID(),
		Name:      s.dev.Name(),
		Connected: true,
		Variables: variables,
		Functions: s.dev.Functions(),
	})
}

func (s *Server) handleVariable(w http.ResponseWriter, r *http.Request) {
	if !s.knownDevice(w, r) {
		return
	}

	name := r.PathValue("name")
	value, err := s.dev.Variable(r.Context(), name)
	if err != nil {
		s.deviceError(w, err, "variable", name)
		return
	}

	writeJSON(w, http.StatusOK, variableResponse{
		Cmd:    "VarReturn",
		Name:   name,
		Result: value,
		CoreInfo: coreInfo{
			DeviceID:  s.dev.ID(),
			Connected: true,
		},
	})
}

func (s *Server) handleFunction(w http.ResponseWriter, r *http.Request) {
	if !s.knownDevice(w, r) {
		return
	}

	name := r.PathValue("name")
	arg, err := readArg(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(arg) > MaxArgLength {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("argument longer than %d characters", MaxArgLength))
		return
	}

	ctx := controller.WithSource(r.Context(), "api")
	value, err := s.dev.Call(ctx, name, arg)
	if err != nil {
		s.deviceError(w, err, "function", name)
		return
	}

	log.Debug().
		Str("function", name).
		Str("arg", arg).
		Int("return_value", value).
		Str("request_id", w.Header().Get(requestIDHeader)).
		Msg("Function called")

	writeJSON(w, http.StatusOK, functionResponse{
		ID:          s.dev.ID(),
		Name:        s.dev.Name(),
		Connected:   true,
		ReturnValue: value,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.knownDevice(w, r) {
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "not_found", "command ledger is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read command ledger")
		writeError(w, http.StatusInternalServerError, "server_error", "failed to read command ledger")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAlexa(w http.ResponseWriter, r *http.Request) {
	var d alexa.Directive
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed directive: "+err.Error())
		return
	}
	if !s.tokenOK(r) && !s.matches(d.Payload.AccessToken) {
		writeError(w, http.StatusUnauthorized, "invalid_token", "The access token provided is invalid.")
		return
	}

	ctx := controller.WithSource(r.Context(), "alexa")
	resp := s.gateway.Handle(ctx, d)

	log.Debug().
		Str("namespace", d.Header.Namespace).
		Str("request", d.Header.Name).
		Str("response", resp.Header.Name).
		Msg("Alexa directive handled")

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) knownDevice(w http.ResponseWriter, r *http.Request) bool {
	id := r.PathValue("id")
	if id == s.dev.ID() || id == s.dev.Name() {
		return true
	}
	writeError(w, http.StatusNotFound, "not_found", "unknown device "+strconv.Quote(id))
	return false
}

func (s *Server) deviceError(w http.ResponseWriter, err error, kind, name string) {
	switch {
	case errors.Is(err, device.ErrUnknownFunction), errors.Is(err, device.ErrUnknownVariable):
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("unknown %s %q", kind, name))
	case errors.Is(err, device.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "device is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timed_out", err.Error())
	default:
		log.Error().Err(err).Str(kind, name).Msg("Device call failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func (s *Server) authorized(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.tokenOK(r) {
			writeError(w, http.StatusUnauthorized, "invalid_token", "The access token provided is invalid.")
			return
		}
		next(w, r)
	})
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}

func (s *Server) tokenOK(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && s.matches(token) {
			return true
		}
	}
	if s.matches(r.URL.Query().Get("access_token")) {
		return true
	}
	if isForm(r) {
		return s.matches(r.PostFormValue("access_token"))
	}
	return false
}

func (s *Server) matches(token string) bool {
	if s.token == "" {
		return true
	}
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

func readArg(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		var body struct {
			Arg string `json:"arg"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("malformed JSON body: %w", err)
		}
		return body.Arg, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("malformed form body: %w", err)
	}
	if arg := r.PostForm.Get("arg"); arg != "" {
		return arg, nil
	}
	return r.Form.Get("arg"), nil
}

func isForm(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

const requestIDHeader = "X-Request-Id"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
