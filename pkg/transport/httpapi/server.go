// Package httpapi exposes the plugin service over HTTP using gin. Request
// bodies are validated against the embedded OpenAPI document before they
// reach the service.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/plugin"
)

// DefaultRequestIDHeader carries the request id on requests and responses.
const DefaultRequestIDHeader = "X-Request-Id"

const requestIDKey = "avrocontract.request_id"

// Handler is the subset of the plugin service the routes call.
type Handler interface {
	Handle(ctx context.Context, method string, body []byte) ([]byte, error)
}

var _ Handler = (*plugin.Service)(nil)

// Option customises the server.
type Option func(*Server)

// WithLogger sets the request logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestIDHeader overrides the request id header name.
func WithRequestIDHeader(header string) Option {
	return func(s *Server) {
		if h := strings.TrimSpace(header); h != "" {
			s.requestIDHeader = h
		}
	}
}

// WithValidation toggles OpenAPI request validation. Enabled by default.
func WithValidation(enabled bool) Option {
	return func(s *Server) {
		s.validate = enabled
	}
}

// WithTimeouts sets the read and write timeouts used by ListenAndServe.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// Server routes HTTP requests to the plugin service.
type Server struct {
	handler         Handler
	engine          *gin.Engine
	logger          *slog.Logger
	requestIDHeader string
	validate        bool
	readTimeout     time.Duration
	writeTimeout    time.Duration
}

// New builds the router. It fails when the embedded OpenAPI document does not
// load.
func New(handler Handler, options ...Option) (*Server, error) {
	if handler == nil {
		return nil, errors.New("httpapi: handler is required")
	}
	s := &Server{
		handler:         handler,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		requestIDHeader: DefaultRequestIDHeader,
		validate:        true,
		readTimeout:     15 * time.Second,
		writeTimeout:    30 * time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	d, err := Document()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(requestIDMiddleware(s.requestIDHeader))
	r.Use(requestLogger(s.logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/openapi.json", func(c *gin.Context) {
		body, err := json.Marshal(d)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	})

	v1 := r.Group("/v1")
	routes := []struct {
		path   string
		method string
	}{
		{path: "/v1/init", method: plugin.MethodInitPlugin},
		{path: "/v1/configure", method: plugin.MethodConfigureInteraction},
		{path: "/v1/verify", method: plugin.MethodVerifyContent},
		{path: "/v1/generate", method: plugin.MethodGenerateContent},
	}
	for _, route := range routes {
		handlers := []gin.HandlerFunc{}
		if s.validate {
			handlers = append(handlers, validationMiddleware(d, route.path))
		}
		handlers = append(handlers, s.dispatch(route.method))
		v1.POST(strings.TrimPrefix(route.path, "/v1"), handlers...)
	}

	s.engine = r
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi: serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpapi: shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) dispatch(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		out, err := s.handler.Handle(c.Request.Context(), method, body)
		if err != nil {
			abortWithError(c, statusFor(err), err)
			return
		}
		c.Data(http.StatusOK, "application/json", out)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrSchemaResolution),
		errors.Is(err, model.ErrUnknownField),
		errors.Is(err, model.ErrTypeMismatch),
		errors.Is(err, model.ErrRange),
		errors.Is(err, model.ErrMalformedPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, plugin.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, plugin.ErrUnknownMethod):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString(requestIDKey),
	})
}

func requestIDMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(header, id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "request",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	}
}
