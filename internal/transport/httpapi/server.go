package httpapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"pyanalyzer/internal/core/app"
	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/shared/observability"
	"pyanalyzer/internal/shared/util"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	requestIDHeader = "X-Request-ID"
	// bodyOverhead is the room left for JSON framing around the source.
	bodyOverhead = 64 << 10
)

var legacyRoutes = map[string]ports.LegacyMethod{
	"imported-names":    ports.LegacyImportedNames,
	"defined-functions": ports.LegacyDefinedFunctions,
	"called-names":      ports.LegacyCalledNames,
	"find-ellipsis":     ports.LegacyFindEllipsis,
}

type Options struct {
	Address           string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxSourceBytes    int
}

// Server exposes the analysis service, metrics and health over HTTP.
type Server struct {
	opts      Options
	service   ports.AnalysisService
	health    *app.HealthService
	doc       *openapi3.T
	validator *schemaValidator
	limiters  *util.LimiterRegistry
	logger    *slog.Logger
	server    *http.Server
}

func NewServer(service ports.AnalysisService, health *app.HealthService, opts Options, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	return &Server{
		opts:      opts,
		service:   service,
		health:    health,
		doc:       doc,
		validator: newSchemaValidator(doc),
		limiters:  util.NewLimiterRegistry(opts.RequestsPerSecond, opts.Burst, 10*time.Minute),
		logger:    logger,
	}, nil
}

// Handler returns the routed handler. It is exported for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/analyze", s.api(s.handleAnalyze))
	mux.Handle("POST /v1/legacy/{method}", s.api(s.handleLegacy))
	mux.HandleFunc("GET /openapi.json", s.handleSpec)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.withRequestID(mux)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.limiters.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.opts.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

type apiHandler func(ctx context.Context, r *http.Request, source string) (any, error)

// api wraps the source-taking endpoints with rate limiting, body
// validation, timeout and error mapping.
func (s *Server) api(h apiHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := w.Header().Get(requestIDHeader)

		if !s.limiters.Allow(clientKey(r)) {
			observability.RateLimitedTotal.WithLabelValues("http").Inc()
			s.writeError(w, requestID, errors.New(errors.CodeRateLimited, "rate limit exceeded"))
			return
		}

		source, err := s.decodeSource(w, r)
		if err != nil {
			s.writeError(w, requestID, err)
			return
		}

		ctx := r.Context()
		if s.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
			defer cancel()
		}
		ctx, span := observability.Tracer.Start(ctx, "http "+r.Pattern)
		span.SetAttributes(attribute.String("request.id", requestID))
		defer span.End()

		result, err := h(ctx, r, source)
		if err != nil {
			span.RecordError(err)
			s.logger.Debug("http request failed", "path", r.URL.Path, "request_id", requestID, "error", err)
			s.writeError(w, requestID, err)
			return
		}
		s.respond(w, requestID, http.StatusOK, result)
	})
}

func (s *Server) decodeSource(w http.ResponseWriter, r *http.Request) (string, error) {
	limit := int64(bodyOverhead)
	if s.opts.MaxSourceBytes > 0 {
		limit += int64(s.opts.MaxSourceBytes)
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeValidationError, "read request body")
	}

	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return "", errors.Wrap(err, errors.CodeValidationError, "malformed request body")
	}
	if err := s.validator.validate("SourceRequest", generic); err != nil {
		return "", errors.Wrap(err, errors.CodeValidationError, "invalid request body")
	}

	var req struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return "", errors.Wrap(err, errors.CodeValidationError, "malformed request body")
	}
	return req.Source, nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ *http.Request, source string) (any, error) {
	return s.service.Analyze(ctx, source)
}

func (s *Server) handleLegacy(ctx context.Context, r *http.Request, source string) (any, error) {
	name := r.PathValue("method")
	method, ok := legacyRoutes[name]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("unknown legacy method %q", name))
	}
	value, err := s.service.Legacy(ctx, method, source)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": value}, nil
}

func (s *Server) handleSpec(w http.ResponseWriter, _ *http.Request) {
	data, err := s.doc.MarshalJSON()
	if err != nil {
		s.writeError(w, w.Header().Get(requestIDHeader), errors.Wrap(err, errors.CodeMarshal, "encode openapi document"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	s.respond(w, w.Header().Get(requestIDHeader), code, status)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Code      errors.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Location  string           `json:"location,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, requestID string, err error) {
	body := errorBody{
		Code:      errors.CodeOf(err),
		Message:   errors.MessageOf(err),
		RequestID: requestID,
	}
	if de, ok := errors.AsDomain(err); ok {
		if loc, ok := de.Context[errors.CtxLocation].(string); ok {
			body.Location = loc
		}
		if de.Err != nil && de.Code != errors.CodeSyntax {
			body.Message = fmt.Sprintf("%s: %v", de.Message, de.Err)
		}
	}
	if body.Code == errors.CodeInternal {
		s.logger.Error("http request failed", "request_id", requestID, "error", err)
	}
	if err := writeJSON(w, statusFor(err), body); err != nil {
		s.logger.Error("encode error response", "request_id", requestID, "error", err)
	}
}

// respond writes v, or a CodeMarshal error when v cannot be encoded.
func (s *Server) respond(w http.ResponseWriter, requestID string, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.writeError(w, requestID, err)
	}
}

func statusFor(err error) int {
	if stdContextErr(err) {
		return http.StatusGatewayTimeout
	}
	switch errors.CodeOf(err) {
	case errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeNotFound, errors.CodeNotSupported:
		return http.StatusNotFound
	case errors.CodeSyntax:
		return http.StatusUnprocessableEntity
	case errors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func stdContextErr(err error) bool {
	if _, domain := errors.AsDomain(err); domain {
		return false
	}
	return stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON encodes v before touching w, so a failed encode leaves the
// response unwritten.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.CodeMarshal, "encode response")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
	return nil
}
