package pagetl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/ZaguanLabs/pagetl/shield"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// DefaultTargetLanguage is the target used when none is configured.
const DefaultTargetLanguage = "ko"

// DefaultSampleUnits is the number of leading units used for detection.
const DefaultSampleUnits = 10

// MaxSampleRunes caps the detection sample.
const MaxSampleRunes = 1000

// Orchestrator drives one translation run at a time: detect the page
// language, check the pair, then translate and replace unit by unit.
type Orchestrator struct {
	svc         Service
	targets     TargetResolver
	targetLang  string
	streaming   bool
	sampleUnits int
	logger      *slog.Logger

	running atomic.Bool

	mu        sync.Mutex
	state     Status
	observers []Observer
}

// RunResult summarizes one run.
type RunResult struct {
	RunID          string
	Status         Status
	SourceLanguage string
	Confidence     float64
	TargetLanguage string
	Units          int           // Units extracted
	Replace        ReplaceResult // Outcome of the replacements made
	Err            error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTargetLanguage sets the language to translate into.
func WithTargetLanguage(lang string) Option {
	return func(o *Orchestrator) {
		o.targetLang = lang
	}
}

// WithStreaming makes the orchestrator use streaming translation.
func WithStreaming(enabled bool) Option {
	return func(o *Orchestrator) {
		o.streaming = enabled
	}
}

// WithSampleSize sets how many leading units make up the detection sample.
func WithSampleSize(units int) Option {
	return func(o *Orchestrator) {
		o.sampleUnits = units
	}
}

// WithObserver subscribes obs to every run.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observers = append(o.observers, obs)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator in the idle state.
func NewOrchestrator(svc Service, targets TargetResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:         svc,
		targets:     targets,
		targetLang:  DefaultTargetLanguage,
		sampleUnits: DefaultSampleUnits,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:       StatusIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sampleUnits <= 0 {
		o.sampleUnits = DefaultSampleUnits
	}
	return o
}

// State returns the current status.
func (o *Orchestrator) State() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// TargetLanguage returns the language runs translate into.
func (o *Orchestrator) TargetLanguage() string {
	return o.targetLang
}

// Subscribe adds an observer for subsequent events.
func (o *Orchestrator) Subscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, obs)
}

// Run performs one translation run. It fails fast with ErrRunInProgress,
// without emitting events, when another run has not finished yet.
// A failed run returns its result together with the error.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	id := uuid.NewString()
	r := &run{
		o:      o,
		id:     id,
		logger: o.logger.With("run", id),
		result: &RunResult{RunID: id, TargetLanguage: o.targetLang},
	}

	if err := r.execute(ctx); err != nil {
		r.result.Status = StatusError
		r.result.Err = err
		r.logger.Warn("translation run failed", "error", err)
		r.setStatus(StatusError, err)
		return r.result, err
	}

	r.result.Status = StatusCompleted
	r.logger.Info("translation run completed",
		"units", r.result.Units,
		"applied", r.result.Replace.Applied,
		"skipped", len(r.result.Replace.Skipped))
	r.setStatus(StatusCompleted, nil)
	return r.result, nil
}

// run is the state of one Run call.
type run struct {
	o      *Orchestrator
	id     string
	logger *slog.Logger
	result *RunResult
}

func (r *run) execute(ctx context.Context) error {
	o := r.o
	r.setStatus(StatusDetecting, nil)

	target, err := o.targets.ActiveTarget(ctx)
	if err != nil || nilSurface(target) {
		return noTarget(err)
	}

	avail, err := o.svc.CheckDetectorAvailability(ctx)
	if err != nil {
		return &TranslationError{Message: "checking detector availability", Cause: err}
	}
	if avail == Unavailable {
		return &TranslationError{Message: "detector unavailable", Cause: ErrCapabilityUnavailable}
	}

	units, err := target.GetPageContent(ctx)
	if err != nil {
		return &TranslationError{Message: "extracting page content", Cause: err}
	}
	r.result.Units = len(units)
	if len(units) == 0 {
		r.logger.Info("no translatable content")
		return nil
	}

	detection, err := o.svc.DetectLanguage(ctx, SampleText(units, o.sampleUnits), r.progress(ModelDetector))
	if err != nil {
		return err
	}
	r.resume(StatusDetecting)
	r.result.SourceLanguage = detection.Language
	r.result.Confidence = detection.Confidence
	r.emit(Event{Kind: EventLanguageDetected, Language: detection.Language, Confidence: detection.Confidence})

	if SameLanguage(detection.Language, o.targetLang) {
		r.logger.Info("page already in target language", "language", detection.Language)
		return nil
	}

	pair := LanguagePair{Source: detection.Language, Target: o.targetLang}
	avail, err = o.svc.CheckTranslatorAvailability(ctx, pair)
	if err != nil {
		return &TranslationError{Message: "checking translator availability", Cause: err}
	}
	if avail == Unavailable {
		return &TranslationError{Message: "unsupported language pair " + pair.String(), Cause: ErrUnsupportedLanguagePair}
	}

	r.setStatus(StatusTranslating, nil)
	for i, u := range units {
		if err := r.translateUnit(ctx, target, pair, u); err != nil {
			return &UnitTranslationError{UnitID: u.ID, Index: i, Cause: err}
		}
	}

	if marker, ok := target.(LanguageMarker); ok && r.result.Replace.Applied > 0 {
		marker.SetLanguage(o.targetLang)
	}
	return nil
}

// translateUnit shields, translates, restores and replaces one unit.
func (r *run) translateUnit(ctx context.Context, target ContentSurface, pair LanguagePair, u Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	protected, table := shield.Protect(u.Text)

	var translated string
	var err error
	if r.o.streaming {
		translated, err = r.o.svc.TranslateStreaming(ctx, protected, pair, r.progress(ModelTranslator), func(partial string) {
			r.emit(Event{Kind: EventChunk, UnitID: u.ID, Partial: shield.Restore(partial, table)})
		})
	} else {
		translated, err = r.o.svc.Translate(ctx, protected, pair, r.progress(ModelTranslator))
	}
	if err != nil {
		return err
	}
	r.resume(StatusTranslating)

	restored, stats := shield.RestoreStats(translated, table)
	if stats.Missed > 0 || stats.Restored < len(table) {
		r.logger.Debug("placeholders not fully restored",
			"unit", u.ID, "spans", len(table), "restored", stats.Restored, "missed", stats.Missed)
	}

	// A finished translation is applied even if the run was cancelled meanwhile.
	res, err := target.ReplaceContent(context.WithoutCancel(ctx), []TranslatedUnit{{ID: u.ID, TranslatedText: restored}})
	if err != nil {
		return err
	}
	r.result.Replace.Merge(res)
	return nil
}

// progress returns the download monitor for one capability call. The first
// report switches the run to downloading.
func (r *run) progress(model ModelType) ProgressFunc {
	return func(p float64) {
		if r.o.State() != StatusDownloading {
			r.setStatus(StatusDownloading, nil)
		}
		r.emit(Event{Kind: EventProgress, Progress: p, ModelType: model})
	}
}

// resume returns to phase after a download finished.
func (r *run) resume(phase Status) {
	if r.o.State() == StatusDownloading {
		r.setStatus(phase, nil)
	}
}

func (r *run) setStatus(s Status, err error) {
	r.o.mu.Lock()
	r.o.state = s
	r.o.mu.Unlock()

	r.logger.Debug("status changed", "status", s)
	r.emit(Event{Kind: EventStatus, Status: s, Err: err})
}

func (r *run) emit(ev Event) {
	ev.RunID = r.id

	r.o.mu.Lock()
	observers := append([]Observer(nil), r.o.observers...)
	r.o.mu.Unlock()

	for _, obs := range observers {
		r.notify(obs, ev)
	}
}

// notify delivers ev, ignoring observers that panic.
func (r *run) notify(obs Observer, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("observer panicked", "event", ev.Kind, "panic", rec)
		}
	}()
	obs.OnEvent(ev)
}

func noTarget(err error) error {
	if err == nil || errors.Is(err, ErrNoTargetFound) {
		return ErrNoTargetFound
	}
	return fmt.Errorf("%w: %w", ErrNoTargetFound, err)
}

// SampleText joins the visible text of the first n units, capped at
// MaxSampleRunes. Markup in block units is dropped.
func SampleText(units []Unit, n int) string {
	if n > len(units) {
		n = len(units)
	}

	parts := make([]string, 0, n)
	for _, u := range units[:n] {
		if text := visibleText(u.Text); text != "" {
			parts = append(parts, text)
		}
	}

	sample := strings.Join(parts, " ")
	if utf8.RuneCountInString(sample) > MaxSampleRunes {
		sample = string([]rune(sample)[:MaxSampleRunes])
	}
	return sample
}

// visibleText strips tags and collapses whitespace. Code spans are dropped.
func visibleText(markup string) string {
	if !strings.ContainsRune(markup, '<') {
		return strings.Join(strings.Fields(markup), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "code" {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "code" && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}
