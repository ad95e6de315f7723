package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/shared/observability"
	"pyanalyzer/internal/shared/util"
)

const defaultMaxLineBytes = 8 << 20

// Request is one line of input.
type Request struct {
	ID     any    `json:"id,omitempty"`
	Method string `json:"method"`
	Params struct {
		Source *string `json:"source"`
	} `json:"params"`
}

// Response is one line of output. Exactly one of Result and Error is set.
type Response struct {
	ID     any            `json:"id,omitempty"`
	OK     bool           `json:"ok"`
	Result any            `json:"result,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

type ResponseError struct {
	Code     errors.ErrorCode `json:"code"`
	Message  string           `json:"message"`
	Location string           `json:"location,omitempty"`
}

type Options struct {
	RequestsPerSecond float64
	Burst             int
	MaxLineBytes      int
}

// Server runs the line-delimited JSON request loop.
type Server struct {
	service ports.AnalysisService
	limiter *util.Limiter
	maxLine int
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

func NewServer(service ports.AnalysisService, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = defaultMaxLineBytes
	}
	return &Server{
		service: service,
		limiter: util.NewLimiter(opts.RequestsPerSecond, opts.Burst),
		maxLine: maxLine,
		logger:  logger,
	}
}

// Serve answers requests from in until EOF or ctx is done. A second
// concurrent call blocks until ctx is done.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), s.maxLine)
	writer := bufio.NewWriter(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if err := s.write(writer, resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}

func (s *Server) handleLine(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, errors.Wrap(err, errors.CodeValidationError, "malformed request"))
	}

	if !s.limiter.Allow(1) {
		observability.RateLimitedTotal.WithLabelValues("stdio").Inc()
		return errorResponse(req.ID, errors.New(errors.CodeRateLimited, "rate limit exceeded"))
	}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		s.logger.Debug("stdio request failed", "method", req.Method, "error", err)
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, OK: true, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	if req.Method == "ping" {
		return map[string]any{}, nil
	}
	if req.Params.Source == nil {
		return nil, errors.New(errors.CodeValidationError, "params.source is required")
	}
	source := *req.Params.Source

	switch req.Method {
	case "analyze":
		return s.service.Analyze(ctx, source)
	case string(ports.LegacyImportedNames),
		string(ports.LegacyDefinedFunctions),
		string(ports.LegacyCalledNames),
		string(ports.LegacyFindEllipsis):
		return s.service.Legacy(ctx, ports.LegacyMethod(req.Method), source)
	}
	return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown method %q", req.Method))
}

// write encodes resp, replacing it with a CodeMarshal error when the result
// cannot be encoded.
func (s *Server) write(w *bufio.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		data, err = json.Marshal(errorResponse(resp.ID, errors.Wrap(err, errors.CodeMarshal, "encode result")))
		if err != nil {
			return err
		}
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return w.Flush()
}

func errorResponse(id any, err error) Response {
	re := &ResponseError{
		Code:    errors.CodeOf(err),
		Message: errors.MessageOf(err),
	}
	if de, ok := errors.AsDomain(err); ok {
		if loc, ok := de.Context[errors.CtxLocation].(string); ok {
			re.Location = loc
		}
		if de.Err != nil && de.Code != errors.CodeSyntax {
			re.Message = fmt.Sprintf("%s: %v", de.Message, de.Err)
		}
	}
	return Response{ID: id, OK: false, Error: re}
}
