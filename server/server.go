// Package server exposes the catalog over HTTP as JSON.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentuity/pokedex/catalog"
	"github.com/agentuity/pokedex/logger"
	"github.com/agentuity/pokedex/sys"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/agentuity/pokedex/server")

// Error codes sent as {"error": code}.
const (
	CodeInvalidSort      = "INVALID_SORT"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeUnavailable      = "POKEAPI_UNAVAILABLE"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// RequestIDHeader carries the request id. An incoming value is kept.
const RequestIDHeader = "X-Request-Id"

// Catalog is the part of catalog.Service the HTTP layer uses.
type Catalog interface {
	QueryPage(ctx context.Context, q catalog.Query) (catalog.Page, error)
	ListCategories(ctx context.Context) ([]string, error)
	SpeciesDetail(ctx context.Context, nameOrID string) (catalog.DetailRecord, error)
}

var _ Catalog = (*catalog.Service)(nil)

type Server struct {
	catalog Catalog
	logger  logger.Logger
	handler http.Handler
}

var _ http.Handler = (*Server)(nil)

type errResponse struct {
	Error string `json:"error"`
}

type typesResponse struct {
	Types []string `json:"types"`
}

// New returns a Server answering from c.
func New(log logger.Logger, c Catalog) *Server {
	s := &Server{catalog: c, logger: log.WithPrefix("[http]")}
	mux := http.NewServeMux()
	mux.Handle("/api/pokemon", s.route("pokemon.query", s.handleQuery))
	mux.Handle("/api/pokemon/types", s.route("pokemon.types", s.handleTypes))
	mux.Handle("/api/pokemon/{nameOrId}", s.route("pokemon.detail", s.handleDetail))
	mux.HandleFunc("/_health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	s.handler = mux
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens on addr until ctx is done, then shuts down gracefully, waiting
// at most 10 seconds for in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "error listening on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", ln.Addr())
		errs <- hs.Serve(ln)
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "error shutting down http server")
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("stopped")
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// route wraps a GET handler with the method check, request id, tracing,
// panic recovery and request logging.
func (s *Server) route(name string, next func(w http.ResponseWriter, r *http.Request, log logger.Logger)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		log := logger.WithKV(s.logger, "request_id", requestID)

		ctx, span := tracer.Start(r.Context(), name, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.RequestURI()),
			attribute.String("request.id", requestID),
		)
		r = r.WithContext(ctx)

		sw := &statusWriter{ResponseWriter: w}
		defer func() {
			span.SetAttributes(attribute.Int("http.status_code", sw.status))
			log.Debug("%s %s -> %d in %s", r.Method, r.URL.RequestURI(), sw.status, time.Since(started))
		}()

		if r.Method != http.MethodGet {
			sw.Header().Set("Allow", http.MethodGet)
			s.writeError(sw, log, http.StatusMethodNotAllowed, CodeMethodNotAllowed)
			return
		}

		var err error
		defer func() {
			if err != nil && sw.status == 0 {
				s.writeError(sw, log, http.StatusInternalServerError, CodeInternal)
			}
		}()
		defer sys.RecoverError(log, &err)
		next(sw, r, log)
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request, log logger.Logger) {
	v := r.URL.Query()
	q := catalog.Query{
		Search:   v.Get("q"),
		Category: v.Get("type"),
		Sort:     v.Get("sort"),
		Page:     parsePage(v.Get("page")),
	}
	page, err := s.catalog.QueryPage(r.Context(), q)
	if err != nil {
		s.fail(w, log, err, false)
		return
	}
	s.writeJSON(w, r, log, page)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request, log logger.Logger) {
	types, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		s.fail(w, log, err, false)
		return
	}
	s.writeJSON(w, r, log, typesResponse{Types: types})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request, log logger.Logger) {
	rec, err := s.catalog.SpeciesDetail(r.Context(), r.PathValue("nameOrId"))
	if err != nil {
		s.fail(w, log, err, true)
		return
	}
	s.writeJSON(w, r, log, rec)
}

// parsePage returns the page number in v, or 1 when v is not a positive
// integer.
func parsePage(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// StatusFor maps a catalog error onto an HTTP status and error code. On the
// detail route a malformed name or id is reported as not found.
func StatusFor(err error, detail bool) (int, string) {
	switch catalog.KindOf(err) {
	case catalog.KindInvalidArgument:
		if detail {
			return http.StatusNotFound, CodeNotFound
		}
		if errors.Is(err, catalog.ErrInvalidSort) {
			return http.StatusBadRequest, CodeInvalidSort
		}
		return http.StatusBadRequest, CodeInvalidArgument
	case catalog.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case catalog.KindUnavailable:
		return http.StatusBadGateway, CodeUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

func (s *Server) fail(w http.ResponseWriter, log logger.Logger, err error, detail bool) {
	status, code := StatusFor(err, detail)
	if status >= http.StatusInternalServerError {
		log.Error("%s: %s", code, err)
	} else {
		log.Debug("%s: %s", code, err)
	}
	s.writeError(w, log, status, code)
}

func (s *Server) writeError(w http.ResponseWriter, log logger.Logger, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errResponse{Error: code}); err != nil {
		log.Error("error encoding JSON response: %s", err)
	}
}

// etagMatches reports whether any If-None-Match value matches etag. The
// comparison is weak: a W/ prefix on either side is ignored. "*" matches any
// current representation.
func etagMatches(values []string, etag string) bool {
	etag = strings.TrimPrefix(etag, "W/")
	for _, v := range values {
		for _, candidate := range strings.Split(v, ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
				return true
			}
		}
	}
	return false
}

// writeJSON sends data with a content hash ETag, answering 304 when the
// client already holds the same body.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, log logger.Logger, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		log.Error("error encoding JSON response: %s", err)
		s.writeError(w, log, http.StatusInternalServerError, CodeInternal)
		return
	}
	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(buf.Bytes()))
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Values("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
