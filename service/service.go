// Package service is the façade over the detection and translation
// capabilities: availability checks, a shared detector, one cached
// translator per language pair, creation retries and streaming.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/cache"
	"golang.org/x/sync/singleflight"
)

// Default timing and retry settings.
const (
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultDownloadWait     = 30 * time.Second
	DefaultMaxCreateRetries = 2
	DefaultRetryDelay       = 250 * time.Millisecond
)

// Service owns the capability handles of one process.
type Service struct {
	detector   pagetl.DetectorCapability
	translator pagetl.TranslatorCapability
	logger     *slog.Logger

	pollInterval     time.Duration
	downloadWait     time.Duration
	maxCreateRetries int
	retryDelay       time.Duration

	detectorMu   sync.Mutex
	detectorInst pagetl.DetectorInstance

	handles   *cache.Store[pagetl.TranslatorInstance]
	group     singleflight.Group
	listeners *listeners
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPollInterval sets how often availability is polled while a model downloads.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		s.pollInterval = d
	}
}

// WithDownloadWait sets how long to wait for a download before giving up.
func WithDownloadWait(d time.Duration) Option {
	return func(s *Service) {
		s.downloadWait = d
	}
}

// WithMaxCreateRetries sets the number of retries after a failed translator creation.
func WithMaxCreateRetries(n int) Option {
	return func(s *Service) {
		s.maxCreateRetries = n
	}
}

// WithRetryDelay sets the pause before retrying a creation that failed while
// the capability reported itself available.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

// New creates a service. Either capability may be nil when the host lacks it.
func New(detector pagetl.DetectorCapability, translator pagetl.TranslatorCapability, opts ...Option) *Service {
	s := &Service{
		detector:         detector,
		translator:       translator,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollInterval:     DefaultPollInterval,
		downloadWait:     DefaultDownloadWait,
		maxCreateRetries: DefaultMaxCreateRetries,
		retryDelay:       DefaultRetryDelay,
		handles:          cache.New[pagetl.TranslatorInstance](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.listeners = newListeners(s.logger)
	return s
}

// CheckDetectorAvailability queries the detection capability.
func (s *Service) CheckDetectorAvailability(ctx context.Context) (pagetl.Availability, error) {
	if s.detector == nil {
		return pagetl.Unavailable, nil
	}
	return s.detector.Availability(ctx)
}

// CheckTranslatorAvailability queries the translation capability for pair.
func (s *Service) CheckTranslatorAvailability(ctx context.Context, pair pagetl.LanguagePair) (pagetl.Availability, error) {
	if s.translator == nil {
		return pagetl.Unavailable, nil
	}
	return s.translator.Availability(ctx, pair)
}

// DetectLanguage returns the top-ranked language of sample.
func (s *Service) DetectLanguage(ctx context.Context, sample string, onProgress pagetl.ProgressFunc) (pagetl.Detection, error) {
	if s.detector == nil {
		return pagetl.Detection{}, pagetl.ErrDetectionUnsupported
	}

	inst, err := s.sharedDetector(ctx, onProgress)
	if err != nil {
		return pagetl.Detection{}, err
	}

	candidates, err := inst.Detect(ctx, truncateRunes(sample, pagetl.MaxSampleRunes))
	if err != nil {
		return pagetl.Detection{}, &pagetl.TranslationError{Message: "language detection failed", Cause: err}
	}
	if len(candidates) == 0 {
		return pagetl.Detection{}, pagetl.ErrDetectionFailed
	}

	top := candidates[0]
	s.logger.Debug("language detected", "language", top.DetectedLanguage, "confidence", top.Confidence)
	return pagetl.Detection{Language: top.DetectedLanguage, Confidence: top.Confidence}, nil
}

// sharedDetector creates the detector on first use.
func (s *Service) sharedDetector(ctx context.Context, onProgress pagetl.ProgressFunc) (pagetl.DetectorInstance, error) {
	s.detectorMu.Lock()
	defer s.detectorMu.Unlock()

	if s.detectorInst != nil {
		return s.detectorInst, nil
	}

	s.logger.Info("creating language detector")
	inst, err := s.detector.Create(ctx, newProgress(onProgress, s.logger).report)
	if err != nil {
		return nil, &pagetl.TranslationError{Message: "detector creation failed", Cause: err}
	}
	s.detectorInst = inst
	return inst, nil
}

// CreateTranslator returns the cached translator for pair, creating it when
// missing. Concurrent callers for the same pair share one creation: each
// receives its progress reports and may stop waiting when its own ctx is
// done. The shared creation itself is not cancelled by any single caller;
// it finishes and is cached for the next one.
func (s *Service) CreateTranslator(ctx context.Context, pair pagetl.LanguagePair, onProgress pagetl.ProgressFunc) (pagetl.TranslatorInstance, error) {
	if s.translator == nil {
		return nil, pagetl.ErrCapabilityUnavailable
	}

	key := pair.String()
	if h, ok := s.handles.Get(key); ok {
		return h, nil
	}

	if onProgress != nil {
		defer s.listeners.add(key, onProgress)()
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if h, ok := s.handles.Get(key); ok {
			return h, nil
		}
		h, err := s.create(context.WithoutCancel(ctx), pair, func(v float64) {
			s.listeners.notify(key, v)
		})
		if err != nil {
			return nil, err
		}
		s.handles.Set(key, h)
		return h, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(pagetl.TranslatorInstance), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Translate translates text with the translator for pair. A failed
// invocation evicts the translator and is retried once on a fresh one.
func (s *Service) Translate(ctx context.Context, text string, pair pagetl.LanguagePair, onProgress pagetl.ProgressFunc) (string, error) {
	var out string
	err := s.withTranslator(ctx, pair, onProgress, func(h pagetl.TranslatorInstance) error {
		var err error
		out, err = h.Translate(ctx, text)
		if err == nil {
			err = checkTranslation(text, out)
		}
		return err
	})
	return out, err
}

// TranslateStreaming is Translate for streaming translators. onChunk receives
// every intermediate value; the final value is returned.
func (s *Service) TranslateStreaming(ctx context.Context, text string, pair pagetl.LanguagePair, onProgress pagetl.ProgressFunc, onChunk pagetl.ChunkFunc) (string, error) {
	var out string
	err := s.withTranslator(ctx, pair, onProgress, func(h pagetl.TranslatorInstance) error {
		var err error
		out, err = consume(ctx, h, text, onChunk)
		if err == nil {
			err = checkTranslation(text, out)
		}
		return err
	})
	return out, err
}

// checkTranslation rejects an empty result for text that had content, which
// would otherwise blank the unit it replaces.
func checkTranslation(text, out string) error {
	if strings.TrimSpace(out) == "" && strings.TrimSpace(text) != "" {
		return &pagetl.ProviderError{Message: "capability returned no text", Cause: pagetl.ErrEmptyTranslation, Retryable: true}
	}
	return nil
}

func consume(ctx context.Context, h pagetl.TranslatorInstance, text string, onChunk pagetl.ChunkFunc) (string, error) {
	stream, err := h.TranslateStreaming(ctx, text)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var last string
	for {
		v, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return last, nil
		}
		if err != nil {
			return "", err
		}
		last = v
		if onChunk != nil {
			onChunk(v)
		}
	}
}

func (s *Service) withTranslator(ctx context.Context, pair pagetl.LanguagePair, onProgress pagetl.ProgressFunc, call func(pagetl.TranslatorInstance) error) error {
	h, err := s.CreateTranslator(ctx, pair, onProgress)
	if err != nil {
		return err
	}

	err = call(h)
	if err == nil || ctx.Err() != nil {
		return err
	}

	s.logger.Warn("translator invocation failed, recreating", "pair", pair.String(), "retryable", pagetl.IsRetryable(err), "error", err)
	s.evict(pair, h)

	h, err = s.CreateTranslator(ctx, pair, onProgress)
	if err != nil {
		return err
	}
	return call(h)
}

// evict drops h from the cache unless another caller already replaced it.
func (s *Service) evict(pair pagetl.LanguagePair, h pagetl.TranslatorInstance) {
	key := pair.String()
	age, _ := s.handles.Age(key)
	if s.handles.DeleteIf(key, func(cached pagetl.TranslatorInstance) bool { return cached == h }) {
		s.logger.Debug("translator evicted", "pair", key, "age", age)
		h.Destroy()
	}
}

// Translators returns the number of cached translators.
func (s *Service) Translators() int {
	return s.handles.Len()
}

// DestroyAll destroys every cached translator and the shared detector.
func (s *Service) DestroyAll() {
	for key, h := range s.handles.Drain() {
		s.logger.Debug("destroying translator", "pair", key)
		h.Destroy()
	}

	s.detectorMu.Lock()
	defer s.detectorMu.Unlock()
	if s.detectorInst != nil {
		s.detectorInst.Destroy()
		s.detectorInst = nil
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// Verify Service implements pagetl.Service
var _ pagetl.Service = (*Service)(nil)
