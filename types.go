// Package pagetl translates the readable content of an HTML page in place.
package pagetl

import (
	"context"
	"io"
	"reflect"
)

// Unit is one addressable chunk of extracted text submitted to translation as a whole.
type Unit struct {
	ID      string `json:"id"`      // Unique within one extraction pass
	Text    string `json:"text"`    // Text or inner markup to translate
	Locator string `json:"locator"` // Indexed-sibling path from the document root
}

// TranslatedUnit carries the translation for the unit with the same ID.
type TranslatedUnit struct {
	ID             string `json:"id"`
	TranslatedText string `json:"translatedText"`
}

// ReplaceResult reports which units a replacement applied and which it skipped.
type ReplaceResult struct {
	Applied int      // Units written back into the document
	Skipped []string // IDs not found in the registry or gone stale
}

// Merge adds other to r.
func (r *ReplaceResult) Merge(other ReplaceResult) {
	r.Applied += other.Applied
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// Status is the state of a translation session.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusDetecting   Status = "detecting"
	StatusDownloading Status = "downloading"
	StatusTranslating Status = "translating"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// Terminal reports whether no further transitions follow s within a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Availability is the answer of a capability to "can you serve this?".
type Availability string

const (
	Available    Availability = "available"
	Downloading  Availability = "downloading"
	Downloadable Availability = "downloadable"
	Unavailable  Availability = "unavailable"
	Other        Availability = "other"
)

// ModelType names the model a download progress report belongs to.
type ModelType string

const (
	ModelDetector   ModelType = "detector"
	ModelTranslator ModelType = "translator"
)

// LanguagePair keys a translator handle.
type LanguagePair struct {
	Source string
	Target string
}

// String returns "source>target".
func (p LanguagePair) String() string {
	return p.Source + ">" + p.Target
}

// Detection is the top-ranked result of language detection.
type Detection struct {
	Language   string
	Confidence float64
}

// DetectionCandidate is one ranked entry returned by a detector instance.
type DetectionCandidate struct {
	DetectedLanguage string
	Confidence       float64
}

// ProgressFunc receives model download progress as a fraction in [0, 1].
type ProgressFunc func(progress float64)

// ChunkFunc receives every intermediate value of a streaming translation.
type ChunkFunc func(partial string)

// DetectorCapability is the host's language detection capability.
type DetectorCapability interface {
	Availability(ctx context.Context) (Availability, error)
	Create(ctx context.Context, monitor ProgressFunc) (DetectorInstance, error)
}

// DetectorInstance ranks candidate languages for a text. An empty result is
// a valid outcome distinct from an error.
type DetectorInstance interface {
	Detect(ctx context.Context, text string) ([]DetectionCandidate, error)
	Destroy()
}

// TranslatorCapability is the host's translation capability.
type TranslatorCapability interface {
	Availability(ctx context.Context, pair LanguagePair) (Availability, error)
	Create(ctx context.Context, pair LanguagePair, monitor ProgressFunc) (TranslatorInstance, error)
}

// TranslatorInstance translates text for the language pair it was created for.
type TranslatorInstance interface {
	Translate(ctx context.Context, text string) (string, error)
	TranslateStreaming(ctx context.Context, text string) (TextStream, error)
	Destroy()
}

// TextStream yields the incremental results of a streaming translation.
// Every value is the translation so far; Recv returns io.EOF after the
// complete result has been delivered.
type TextStream interface {
	Recv() (string, error)
	io.Closer
}

// ContentSurface is the content-bearing side of the messaging boundary.
type ContentSurface interface {
	// GetPageContent clears the unit registry and extracts a fresh set of units.
	GetPageContent(ctx context.Context) ([]Unit, error)

	// ReplaceContent writes translated units back by ID.
	ReplaceContent(ctx context.Context, units []TranslatedUnit) (ReplaceResult, error)
}

// LanguageMarker is implemented by surfaces that can record the language of
// their content once translation completes.
type LanguageMarker interface {
	SetLanguage(lang string)
}

// TargetResolver finds the content surface a run should operate on.
type TargetResolver interface {
	ActiveTarget(ctx context.Context) (ContentSurface, error)
}

// TargetResolverFunc adapts a function to TargetResolver.
type TargetResolverFunc func(ctx context.Context) (ContentSurface, error)

// ActiveTarget calls f.
func (f TargetResolverFunc) ActiveTarget(ctx context.Context) (ContentSurface, error) {
	return f(ctx)
}

// StaticTarget always resolves to surface. A nil surface, including a typed
// nil pointer such as (*document.Page)(nil), resolves to ErrNoTargetFound.
func StaticTarget(surface ContentSurface) TargetResolver {
	return TargetResolverFunc(func(ctx context.Context) (ContentSurface, error) {
		if nilSurface(surface) {
			return nil, ErrNoTargetFound
		}
		return surface, nil
	})
}

// nilSurface reports whether s is nil or wraps a nil value.
func nilSurface(s ContentSurface) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Service is the translation service façade the orchestrator drives.
type Service interface {
	CheckDetectorAvailability(ctx context.Context) (Availability, error)
	DetectLanguage(ctx context.Context, sample string, onProgress ProgressFunc) (Detection, error)
	CheckTranslatorAvailability(ctx context.Context, pair LanguagePair) (Availability, error)
	Translate(ctx context.Context, text string, pair LanguagePair, onProgress ProgressFunc) (string, error)
	TranslateStreaming(ctx context.Context, text string, pair LanguagePair, onProgress ProgressFunc, onChunk ChunkFunc) (string, error)
}
