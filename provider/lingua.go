package provider

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/ZaguanLabs/pagetl"
	"github.com/pemistahl/lingua-go"
)

// LinguaDetector is a local detection capability backed by lingua-go.
// Building a detector loads its language models, which is reported to the
// creation monitor as a download.
type LinguaDetector struct {
	languages   []lingua.Language
	lowAccuracy bool
	preload     bool
	minDistance float64
	logger      *slog.Logger
}

// LinguaOption configures a LinguaDetector.
type LinguaOption func(*LinguaDetector)

// WithDetectorLanguages restricts detection to the given ISO 639-1 codes.
// Unknown codes are ignored; fewer than two known codes means all languages.
func WithDetectorLanguages(codes ...string) LinguaOption {
	return func(d *LinguaDetector) {
		d.languages = nil
		for _, code := range codes {
			if lang, ok := linguaLanguage(code); ok {
				d.languages = append(d.languages, lang)
			}
		}
	}
}

// WithLowAccuracyMode trades accuracy on short texts for memory and speed.
func WithLowAccuracyMode() LinguaOption {
	return func(d *LinguaDetector) {
		d.lowAccuracy = true
	}
}

// WithPreloadedModels loads every language model when the detector is created.
func WithPreloadedModels() LinguaOption {
	return func(d *LinguaDetector) {
		d.preload = true
	}
}

// WithMinimumRelativeDistance sets lingua's minimum distance between the top candidates.
func WithMinimumRelativeDistance(distance float64) LinguaOption {
	return func(d *LinguaDetector) {
		d.minDistance = distance
	}
}

// WithDetectorLogger sets the logger.
func WithDetectorLogger(logger *slog.Logger) LinguaOption {
	return func(d *LinguaDetector) {
		d.logger = logger
	}
}

// NewLinguaDetector creates a lingua-go detection capability.
func NewLinguaDetector(opts ...LinguaOption) *LinguaDetector {
	d := &LinguaDetector{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Availability always reports available: the models ship with the library.
func (d *LinguaDetector) Availability(ctx context.Context) (pagetl.Availability, error) {
	if err := ctx.Err(); err != nil {
		return pagetl.Unavailable, err
	}
	return pagetl.Available, nil
}

// Create builds a detector instance.
func (d *LinguaDetector) Create(ctx context.Context, monitor pagetl.ProgressFunc) (pagetl.DetectorInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var builder lingua.LanguageDetectorBuilder
	if len(d.languages) >= 2 {
		builder = lingua.NewLanguageDetectorBuilder().FromLanguages(d.languages...)
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	}
	if d.lowAccuracy {
		builder = builder.WithLowAccuracyMode()
	}
	if d.minDistance > 0 {
		builder = builder.WithMinimumRelativeDistance(d.minDistance)
	}
	if d.preload {
		builder = builder.WithPreloadedLanguageModels()
	}

	if monitor != nil && d.preload {
		monitor(0)
	}
	detector := builder.Build()
	if monitor != nil && d.preload {
		monitor(1)
	}

	d.logger.Info("language detector initialized", "languages", len(d.languages), "preloaded", d.preload)
	return &linguaInstance{detector: detector}, nil
}

type linguaInstance struct {
	detector lingua.LanguageDetector
}

// Detect ranks candidate languages by confidence. Languages with zero
// confidence are left out, so an undetectable text yields no candidates.
func (i *linguaInstance) Detect(ctx context.Context, text string) ([]pagetl.DetectionCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i.detector == nil {
		return nil, &pagetl.ProviderError{Message: "detector destroyed"}
	}

	values := i.detector.ComputeLanguageConfidenceValues(text)
	candidates := make([]pagetl.DetectionCandidate, 0, len(values))
	for _, v := range values {
		if v.Value() <= 0 {
			continue
		}
		candidates = append(candidates, pagetl.DetectionCandidate{
			DetectedLanguage: linguaCode(v.Language()),
			Confidence:       v.Value(),
		})
	}
	return candidates, nil
}

func (i *linguaInstance) Destroy() {
	i.detector = nil
}

// linguaCode returns the lowercase ISO 639-1 code of lang.
func linguaCode(lang lingua.Language) string {
	return strings.ToLower(lang.IsoCode639_1().String())
}

// linguaLanguage finds the lingua language for an ISO 639-1 code or locale.
func linguaLanguage(code string) (lingua.Language, bool) {
	base := pagetl.BaseLanguage(code)
	if base == "" {
		return lingua.Unknown, false
	}
	for _, lang := range lingua.AllLanguages() {
		if linguaCode(lang) == base {
			return lang, true
		}
	}
	return lingua.Unknown, false
}

// Verify LinguaDetector implements DetectorCapability
var _ pagetl.DetectorCapability = (*LinguaDetector)(nil)
