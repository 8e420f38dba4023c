// Package server exposes page translation over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/document"
	"github.com/ZaguanLabs/pagetl/messaging"
	"github.com/gin-gonic/gin"
)

// Server runs one orchestration per request against the posted page.
// Requests share the process-wide translation service.
type Server struct {
	svc        pagetl.Service
	docOpts    []document.Option
	targetLang string
	streaming  bool
	observers  []pagetl.Observer
	logger     *slog.Logger
	engine     *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithDocumentOptions sets the extraction options applied to every page.
func WithDocumentOptions(opts ...document.Option) Option {
	return func(s *Server) {
		s.docOpts = append(s.docOpts, opts...)
	}
}

// WithTargetLanguage sets the target used when a request names none.
func WithTargetLanguage(lang string) Option {
	return func(s *Server) {
		s.targetLang = lang
	}
}

// WithStreaming sets the default streaming mode.
func WithStreaming(enabled bool) Option {
	return func(s *Server) {
		s.streaming = enabled
	}
}

// WithObserver adds an observer to every run, e.g. an event publisher.
func WithObserver(obs pagetl.Observer) Option {
	return func(s *Server) {
		s.observers = append(s.observers, obs)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server and its routes.
func New(svc pagetl.Service, opts ...Option) *Server {
	s := &Server{
		svc:        svc,
		targetLang: pagetl.DefaultTargetLanguage,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.GET("/healthz", s.health)

	api := r.Group("/v1")
	{
		api.POST("/translate", s.translate)
		api.POST("/translate-text", s.translateText)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": pagetl.FullVersion(),
	})
}

// TranslateRequest is the body of POST /v1/translate.
type TranslateRequest struct {
	HTML           string `json:"html" binding:"required"`
	TargetLanguage string `json:"target_language"`
	Mode           string `json:"mode"`
	Streaming      *bool  `json:"streaming"`
}

// TranslateResponse is the outcome of one run.
type TranslateResponse struct {
	RunID          string        `json:"run_id"`
	Status         pagetl.Status `json:"status"`
	HTML           string        `json:"html"`
	SourceLanguage string        `json:"source_language,omitempty"`
	TargetLanguage string        `json:"target_language"`
	Units          int           `json:"units"`
	Applied        int           `json:"applied"`
	Skipped        []string      `json:"skipped,omitempty"`
	Error          string        `json:"error,omitempty"`
}

func (s *Server) translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	docOpts := append([]document.Option(nil), s.docOpts...)
	if req.Mode != "" {
		mode, ok := document.ParseMode(req.Mode)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode " + req.Mode})
			return
		}
		docOpts = append(docOpts, document.WithMode(mode))
	}
	docOpts = append(docOpts, document.WithLogger(s.logger))

	page, err := document.Parse(strings.NewReader(req.HTML), docOpts...)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := s.targetLang
	if req.TargetLanguage != "" {
		target = req.TargetLanguage
	}
	streaming := s.streaming
	if req.Streaming != nil {
		streaming = *req.Streaming
	}

	opts := []pagetl.Option{
		pagetl.WithTargetLanguage(target),
		pagetl.WithStreaming(streaming),
		pagetl.WithLogger(s.logger),
	}
	for _, obs := range s.observers {
		opts = append(opts, pagetl.WithObserver(obs))
	}

	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		s.translateStream(c, page, opts)
		return
	}

	o := pagetl.NewOrchestrator(s.svc, pagetl.StaticTarget(page), opts...)
	resp := s.run(c.Request.Context(), o, page)
	code := http.StatusOK
	if resp.Status == pagetl.StatusError {
		code = http.StatusUnprocessableEntity
	}
	c.JSON(code, resp)
}

// translateStream sends every run event as a server-sent event named after
// its message type, then the response as a "result" event.
func (s *Server) translateStream(c *gin.Context, page *document.Page, opts []pagetl.Option) {
	ctx := c.Request.Context()
	events := make(chan messaging.Message, 64)
	done := make(chan TranslateResponse, 1)

	opts = append(opts, pagetl.WithObserver(pagetl.ObserverFunc(func(ev pagetl.Event) {
		select {
		case events <- messaging.FromEvent(ev):
		case <-ctx.Done():
		}
	})))
	o := pagetl.NewOrchestrator(s.svc, pagetl.StaticTarget(page), opts...)

	go func() {
		done <- s.run(ctx, o, page)
	}()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case msg := <-events:
			c.SSEvent(string(msg.Type), msg)
			return true
		case resp := <-done:
			for len(events) > 0 {
				msg := <-events
				c.SSEvent(string(msg.Type), msg)
			}
			c.SSEvent("result", resp)
			return false
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) run(ctx context.Context, o *pagetl.Orchestrator, page *document.Page) TranslateResponse {
	result, err := o.Run(ctx)

	resp := TranslateResponse{TargetLanguage: o.TargetLanguage()}
	if result != nil {
		resp.RunID = result.RunID
		resp.Status = result.Status
		resp.SourceLanguage = result.SourceLanguage
		resp.Units = result.Units
		resp.Applied = result.Replace.Applied
		resp.Skipped = result.Replace.Skipped
	}
	if err != nil {
		resp.Status = pagetl.StatusError
		resp.Error = err.Error()
	}

	out, herr := page.HTML()
	if herr != nil {
		resp.Status = pagetl.StatusError
		resp.Error = herr.Error()
	}
	resp.HTML = out
	return resp
}

// TranslateTextRequest is the body of POST /v1/translate-text.
type TranslateTextRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

// TranslateTextResponse is the outcome of a free-text translation.
type TranslateTextResponse struct {
	Text            string  `json:"text"`
	SourceLanguage  string  `json:"source_language,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	TargetLanguage  string  `json:"target_language"`
	AlreadyInTarget bool    `json:"already_in_target,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func (s *Server) translateText(c *gin.Context) {
	var req TranslateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	target := s.targetLang
	if req.TargetLanguage != "" {
		target = req.TargetLanguage
	}
	o := pagetl.NewOrchestrator(s.svc, pagetl.StaticTarget(nil),
		pagetl.WithTargetLanguage(target),
		pagetl.WithLogger(s.logger))

	res, err := o.TranslateText(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, pagetl.ErrEmptyText):
		c.JSON(http.StatusBadRequest, TranslateTextResponse{TargetLanguage: target, Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, TranslateTextResponse{TargetLanguage: target, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, TranslateTextResponse{
		Text:            res.Text,
		SourceLanguage:  res.SourceLanguage,
		Confidence:      res.Confidence,
		TargetLanguage:  res.TargetLanguage,
		AlreadyInTarget: res.AlreadyInTarget,
	})
}
