package pagetl_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/document"
	"github.com/ZaguanLabs/pagetl/provider"
	"github.com/ZaguanLabs/pagetl/service"
)

// recorder collects the events of a run.
type recorder struct {
	mu     sync.Mutex
	events []pagetl.Event
}

func (r *recorder) OnEvent(ev pagetl.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []pagetl.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pagetl.Event(nil), r.events...)
}

func (r *recorder) statuses() []pagetl.Status {
	var out []pagetl.Status
	for _, ev := range r.all() {
		if ev.Kind == pagetl.EventStatus {
			out = append(out, ev.Status)
		}
	}
	return out
}

func (r *recorder) kind(kind pagetl.EventKind) []pagetl.Event {
	var out []pagetl.Event
	for _, ev := range r.all() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	page       *document.Page
	detector   *provider.MockDetector
	translator *provider.MockTranslator
	rec        *recorder
	orch       *pagetl.Orchestrator
}

func newFixture(t *testing.T, src string, opts ...pagetl.Option) *fixture {
	t.Helper()
	page, err := document.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	f := &fixture{
		page:       page,
		detector:   provider.NewMockDetector("en", 0.97),
		translator: provider.NewMockTranslator(),
		rec:        &recorder{},
	}
	svc := service.New(f.detector, f.translator,
		service.WithRetryDelay(time.Millisecond),
		service.WithPollInterval(time.Millisecond))

	opts = append([]pagetl.Option{pagetl.WithObserver(f.rec)}, opts...)
	f.orch = pagetl.NewOrchestrator(svc, pagetl.StaticTarget(page), opts...)
	return f
}

func (f *fixture) html(t *testing.T) string {
	t.Helper()
	out, err := f.page.HTML()
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	return out
}

func equalStatuses(got []pagetl.Status, want ...pagetl.Status) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestOrchestrator_CodeSpanSurvives(t *testing.T) {
	f := newFixture(t, `<html><body><p>Hello <code>world()</code>!</p></body></html>`)
	f.translator.Translations["Hello <1:world()>!"] = "안녕 <1:world()>!"

	result, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := f.html(t)
	if !strings.Contains(out, "<p>안녕 <code>world()</code>!</p>") {
		t.Errorf("code span not restored:\n%s", out)
	}
	if !strings.Contains(out, `lang="ko"`) {
		t.Errorf("html lang not set:\n%s", out)
	}

	if result.Status != pagetl.StatusCompleted || result.SourceLanguage != "en" || result.Replace.Applied != 1 {
		t.Errorf("result = %+v", result)
	}
	if f.orch.State() != pagetl.StatusCompleted {
		t.Errorf("State = %s", f.orch.State())
	}
	if got := f.rec.statuses(); !equalStatuses(got, pagetl.StatusDetecting, pagetl.StatusTranslating, pagetl.StatusCompleted) {
		t.Errorf("statuses = %v", got)
	}

	detected := f.rec.kind(pagetl.EventLanguageDetected)
	if len(detected) != 1 || detected[0].Language != "en" || detected[0].Confidence != 0.97 {
		t.Errorf("language events = %+v", detected)
	}
	for _, ev := range f.rec.all() {
		if ev.RunID != result.RunID || ev.RunID == "" {
			t.Errorf("event %s carries run id %q, want %q", ev.Kind, ev.RunID, result.RunID)
		}
	}
}

func TestOrchestrator_StopsAtFailingUnit(t *testing.T) {
	f := newFixture(t, `<p>One</p><p>Two</p><p>Three</p><p>Four</p><p>Five</p>`)
	f.translator.TranslateErr = func(text string, call int) error {
		if text == "Three" {
			return errors.New("model crashed")
		}
		return nil
	}

	result, err := f.orch.Run(context.Background())
	if !errors.Is(err, pagetl.ErrUnitTranslationFailed) {
		t.Fatalf("error = %v, want ErrUnitTranslationFailed", err)
	}
	var unitErr *pagetl.UnitTranslationError
	if !errors.As(err, &unitErr) || unitErr.Index != 2 {
		t.Errorf("expected failure at index 2, got %v", err)
	}

	out := f.html(t)
	for _, want := range []string{"<p>[One]</p>", "<p>[Two]</p>", "<p>Three</p>", "<p>Four</p>", "<p>Five</p>"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in:\n%s", want, out)
		}
	}
	if strings.Contains(out, `lang="ko"`) {
		t.Error("failed run must not mark the page language")
	}

	if result.Status != pagetl.StatusError || result.Replace.Applied != 2 {
		t.Errorf("result = %+v", result)
	}
	if f.orch.State() != pagetl.StatusError {
		t.Errorf("State = %s", f.orch.State())
	}

	statuses := f.rec.kind(pagetl.EventStatus)
	last := statuses[len(statuses)-1]
	if last.Status != pagetl.StatusError || last.Err == nil || !strings.Contains(last.Err.Error(), "model crashed") {
		t.Errorf("last status event = %+v", last)
	}
}

func TestOrchestrator_NoContent(t *testing.T) {
	f := newFixture(t, `<script>var x = "Hello";</script><p class="notranslate">Keep me</p>`)

	result, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != pagetl.StatusCompleted || result.Units != 0 {
		t.Errorf("result = %+v", result)
	}
	if f.detector.CreateCalls != 0 || f.detector.DetectCalls != 0 {
		t.Error("detection must not run without content")
	}
	if got := f.rec.statuses(); !equalStatuses(got, pagetl.StatusDetecting, pagetl.StatusCompleted) {
		t.Errorf("statuses = %v", got)
	}
}

func TestOrchestrator_AlreadyInTarget(t *testing.T) {
	f := newFixture(t, `<p>안녕하세요</p>`, pagetl.WithTargetLanguage("ko"))
	f.detector.Candidates = []pagetl.DetectionCandidate{{DetectedLanguage: "ko-KR", Confidence: 0.9}}

	if _, err := f.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if f.translator.AvailabilityCalls != 0 {
		t.Error("translator must not be checked when the page is already in the target language")
	}
	if f.orch.State() != pagetl.StatusCompleted {
		t.Errorf("State = %s", f.orch.State())
	}
}

func TestOrchestrator_CapabilityErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		wantErr error
		wantMsg string
	}{
		{
			name:    "detector unavailable",
			setup:   func(f *fixture) { f.detector.Availabilities = []pagetl.Availability{pagetl.Unavailable} },
			wantErr: pagetl.ErrCapabilityUnavailable,
			wantMsg: "detector unavailable",
		},
		{
			name:    "unsupported pair",
			setup:   func(f *fixture) { f.translator.Availabilities = []pagetl.Availability{pagetl.Unavailable} },
			wantErr: pagetl.ErrUnsupportedLanguagePair,
			wantMsg: "unsupported language pair",
		},
		{
			name:    "nothing detected",
			setup:   func(f *fixture) { f.detector.Candidates = nil },
			wantErr: pagetl.ErrDetectionFailed,
		},
		{
			name: "translator never created",
			setup: func(f *fixture) {
				f.translator.CreateFailures = 100
			},
			wantErr: pagetl.ErrTranslatorCreateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, `<p>Hello</p>`)
			tt.setup(f)

			_, err := f.orch.Run(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error message %q should mention %q", err.Error(), tt.wantMsg)
			}
			if f.orch.State() != pagetl.StatusError {
				t.Errorf("State = %s", f.orch.State())
			}
			if !strings.Contains(f.html(t), "<p>Hello</p>") {
				t.Error("document must stay untouched")
			}
		})
	}
}

func TestOrchestrator_NoTarget(t *testing.T) {
	svc := service.New(provider.NewMockDetector("en", 1), provider.NewMockTranslator())

	for name, targets := range map[string]pagetl.TargetResolver{
		"nil surface":    pagetl.StaticTarget(nil),
		"typed nil page": pagetl.StaticTarget((*document.Page)(nil)),
		"resolver returns typed nil": pagetl.TargetResolverFunc(func(ctx context.Context) (pagetl.ContentSurface, error) {
			return (*document.Page)(nil), nil
		}),
		"resolver error": pagetl.TargetResolverFunc(func(ctx context.Context) (pagetl.ContentSurface, error) {
			return nil, errors.New("tab closed")
		}),
	} {
		t.Run(name, func(t *testing.T) {
			o := pagetl.NewOrchestrator(svc, targets)
			if _, err := o.Run(context.Background()); !errors.Is(err, pagetl.ErrNoTargetFound) {
				t.Errorf("error = %v, want ErrNoTargetFound", err)
			}
			if o.State() != pagetl.StatusError {
				t.Errorf("State = %s", o.State())
			}
		})
	}
}

func TestOrchestrator_RunInProgress(t *testing.T) {
	f := newFixture(t, `<p>Hello</p>`)

	started := make(chan struct{})
	release := make(chan struct{})
	f.translator.TranslateErr = func(text string, call int) error {
		if call == 1 {
			close(started)
			<-release
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(context.Background())
		done <- err
	}()
	<-started

	before := len(f.rec.all())
	if _, err := f.orch.Run(context.Background()); !errors.Is(err, pagetl.ErrRunInProgress) {
		t.Errorf("second Run error = %v, want ErrRunInProgress", err)
	}
	if after := len(f.rec.all()); after != before {
		t.Errorf("rejected run emitted %d events", after-before)
	}
	if f.orch.State() != pagetl.StatusTranslating {
		t.Errorf("State = %s, want translating", f.orch.State())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
}

func TestOrchestrator_DownloadingPhases(t *testing.T) {
	f := newFixture(t, `<p>Hello</p><p>World</p>`)
	f.detector.Progress = []float64{0.5, 1}
	f.translator.Progress = []float64{0.25, 1}

	if _, err := f.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []pagetl.Status{
		pagetl.StatusDetecting,
		pagetl.StatusDownloading,
		pagetl.StatusDetecting,
		pagetl.StatusTranslating,
		pagetl.StatusDownloading,
		pagetl.StatusTranslating,
		pagetl.StatusCompleted,
	}
	if got := f.rec.statuses(); !equalStatuses(got, want...) {
		t.Errorf("statuses = %v, want %v", got, want)
	}

	progress := f.rec.kind(pagetl.EventProgress)
	if len(progress) != 4 {
		t.Fatalf("progress events = %d, want 4", len(progress))
	}
	if progress[0].ModelType != pagetl.ModelDetector || progress[3].ModelType != pagetl.ModelTranslator {
		t.Errorf("model types = %s, %s", progress[0].ModelType, progress[3].ModelType)
	}
	if progress[2].Progress != 0.25 {
		t.Errorf("translator progress = %v", progress[2].Progress)
	}
}

func TestOrchestrator_Streaming(t *testing.T) {
	f := newFixture(t, `<p>Hello World</p>`, pagetl.WithStreaming(true))

	if _, err := f.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	chunks := f.rec.kind(pagetl.EventChunk)
	if len(chunks) != 2 || chunks[0].Partial != "Hola" || chunks[1].Partial != "Hola Mundo" {
		t.Errorf("chunk events = %+v", chunks)
	}
	if !strings.Contains(f.html(t), "<p>Hola Mundo</p>") {
		t.Errorf("streamed translation not applied:\n%s", f.html(t))
	}
}

func TestOrchestrator_ReusesTranslatorAcrossRuns(t *testing.T) {
	f := newFixture(t, `<p>Hello</p>`)

	for i := 0; i < 2; i++ {
		if _, err := f.orch.Run(context.Background()); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
	}
	if n := f.translator.InstanceCount(); n != 1 {
		t.Errorf("created %d translators across runs, want 1", n)
	}
}

func TestOrchestrator_CancelledMidRun(t *testing.T) {
	f := newFixture(t, `<p>One</p><p>Two</p>`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.translator.TranslateErr = func(text string, call int) error {
		cancel()
		return nil
	}

	_, err := f.orch.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	var unitErr *pagetl.UnitTranslationError
	if !errors.As(err, &unitErr) || unitErr.Index != 1 {
		t.Errorf("expected failure at the second unit, got %v", err)
	}
	if !strings.Contains(f.html(t), "<p>[One]</p><p>Two</p>") {
		t.Errorf("first unit should stay replaced:\n%s", f.html(t))
	}
}

func TestOrchestrator_ObserverPanic(t *testing.T) {
	f := newFixture(t, `<p>Hello</p>`)
	f.orch.Subscribe(pagetl.ObserverFunc(func(pagetl.Event) {
		panic("popup closed")
	}))

	if _, err := f.orch.Run(context.Background()); err != nil {
		t.Fatalf("a panicking observer must not fail the run: %v", err)
	}
	if len(f.rec.all()) == 0 {
		t.Error("other observers should still receive events")
	}
}

func TestSampleText(t *testing.T) {
	units := []pagetl.Unit{
		{Text: "Hello <b>bold</b> <code>x()</code> world"},
		{Text: "  second\n unit "},
		{Text: "third"},
	}

	if got := pagetl.SampleText(units, 2); got != "Hello bold world second unit" {
		t.Errorf("SampleText = %q", got)
	}

	long := []pagetl.Unit{{Text: strings.Repeat("a", pagetl.MaxSampleRunes*2)}}
	if got := pagetl.SampleText(long, 10); len(got) != pagetl.MaxSampleRunes {
		t.Errorf("sample length = %d", len(got))
	}
}
