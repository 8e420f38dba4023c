package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ZaguanLabs/pagetl"
)

// ErrMockCreate is returned by scripted creation failures.
var ErrMockCreate = errors.New("mock: create failed")

// MockDetector is a scripted detection capability for testing.
type MockDetector struct {
	Availabilities []pagetl.Availability       // Returned in order, the last one repeats (default: available)
	Candidates     []pagetl.DetectionCandidate // Result of every Detect call
	DetectErr      error                       // Returned by Detect when set
	CreateErr      error                       // Returned by Create when set
	Progress       []float64                   // Reported to the monitor during Create

	AvailabilityCalls int
	CreateCalls       int
	DetectCalls       int
	Destroyed         int
	LastSample        string

	mu sync.Mutex
}

// NewMockDetector creates a detector that always detects lang.
func NewMockDetector(lang string, confidence float64) *MockDetector {
	return &MockDetector{
		Candidates: []pagetl.DetectionCandidate{{DetectedLanguage: lang, Confidence: confidence}},
	}
}

// Availability returns the next scripted availability.
func (m *MockDetector) Availability(ctx context.Context) (pagetl.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AvailabilityCalls++
	return nextAvailability(m.Availabilities, m.AvailabilityCalls), nil
}

// Create reports the scripted progress and returns an instance.
func (m *MockDetector) Create(ctx context.Context, monitor pagetl.ProgressFunc) (pagetl.DetectorInstance, error) {
	m.mu.Lock()
	m.CreateCalls++
	progress, createErr := m.Progress, m.CreateErr
	m.mu.Unlock()

	if monitor != nil {
		for _, p := range progress {
			monitor(p)
		}
	}
	if createErr != nil {
		return nil, createErr
	}
	return &mockDetectorInstance{mock: m}, nil
}

type mockDetectorInstance struct {
	mock *MockDetector
}

func (i *mockDetectorInstance) Detect(ctx context.Context, text string) ([]pagetl.DetectionCandidate, error) {
	m := i.mock
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DetectCalls++
	m.LastSample = text
	if m.DetectErr != nil {
		return nil, m.DetectErr
	}
	return append([]pagetl.DetectionCandidate(nil), m.Candidates...), nil
}

func (i *mockDetectorInstance) Destroy() {
	i.mock.mu.Lock()
	i.mock.Destroyed++
	i.mock.mu.Unlock()
}

// MockTranslator is a scripted translation capability for testing.
// Unknown texts translate to "[text]".
type MockTranslator struct {
	Translations   map[string]string     // Map of source text to translation
	Availabilities []pagetl.Availability // Returned in order, the last one repeats (default: available)
	CreateFailures int                   // Number of leading Create calls that fail
	CreateErr      error                 // Error of a failing Create (default: ErrMockCreate)
	Progress       []float64             // Reported to the monitor during Create

	// TranslateErr, when set, is consulted before every invocation with the
	// text and the 1-based invocation count.
	TranslateErr func(text string, call int) error

	AvailabilityCalls int
	CreateCalls       int
	TranslateCalls    int
	Instances         []*MockTranslatorInstance
	Pairs             []pagetl.LanguagePair // Pair of every availability check

	mu sync.Mutex
}

// NewMockTranslator creates a mock translator with default translations.
func NewMockTranslator() *MockTranslator {
	return &MockTranslator{
		Translations: map[string]string{
			"Hello":                "Hola",
			"World":                "Mundo",
			"Hello World":          "Hola Mundo",
			"Welcome to our site.": "Bienvenido a nuestro sitio.",
		},
	}
}

// Availability returns the next scripted availability.
func (m *MockTranslator) Availability(ctx context.Context, pair pagetl.LanguagePair) (pagetl.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AvailabilityCalls++
	m.Pairs = append(m.Pairs, pair)
	return nextAvailability(m.Availabilities, m.AvailabilityCalls), nil
}

// Create reports the scripted progress, then fails or returns a new instance.
func (m *MockTranslator) Create(ctx context.Context, pair pagetl.LanguagePair, monitor pagetl.ProgressFunc) (pagetl.TranslatorInstance, error) {
	m.mu.Lock()
	m.CreateCalls++
	call, progress := m.CreateCalls, m.Progress
	m.mu.Unlock()

	if monitor != nil {
		for _, p := range progress {
			monitor(p)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if call <= m.CreateFailures {
		if m.CreateErr != nil {
			return nil, m.CreateErr
		}
		return nil, ErrMockCreate
	}
	inst := &MockTranslatorInstance{Pair: pair, mock: m}
	m.Instances = append(m.Instances, inst)
	return inst, nil
}

// InstanceCount returns the number of instances created so far.
func (m *MockTranslator) InstanceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Instances)
}

func (m *MockTranslator) translate(text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TranslateCalls++
	if m.TranslateErr != nil {
		if err := m.TranslateErr(text, m.TranslateCalls); err != nil {
			return "", err
		}
	}
	if translation, ok := m.Translations[text]; ok {
		return translation, nil
	}
	return fmt.Sprintf("[%s]", text), nil
}

// MockTranslatorInstance is one handle created by a MockTranslator.
type MockTranslatorInstance struct {
	Pair      pagetl.LanguagePair
	Calls     int
	Destroyed bool

	mock *MockTranslator
}

func (i *MockTranslatorInstance) Translate(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i.mock.mu.Lock()
	i.Calls++
	i.mock.mu.Unlock()
	return i.mock.translate(text)
}

// TranslateStreaming yields the translation word by word.
func (i *MockTranslatorInstance) TranslateStreaming(ctx context.Context, text string) (pagetl.TextStream, error) {
	result, err := i.Translate(ctx, text)
	if err != nil {
		return nil, err
	}

	var values []string
	for pos, r := range result {
		if r == ' ' && pos > 0 {
			values = append(values, result[:pos])
		}
	}
	values = append(values, result)
	return &sliceStream{values: values}, nil
}

func (i *MockTranslatorInstance) Destroy() {
	i.mock.mu.Lock()
	i.Destroyed = true
	i.mock.mu.Unlock()
}

// IsDestroyed reports whether Destroy was called.
func (i *MockTranslatorInstance) IsDestroyed() bool {
	i.mock.mu.Lock()
	defer i.mock.mu.Unlock()
	return i.Destroyed
}

// sliceStream replays fixed values.
type sliceStream struct {
	values []string
	next   int
}

func (s *sliceStream) Recv() (string, error) {
	if s.next >= len(s.values) {
		return "", io.EOF
	}
	v := s.values[s.next]
	s.next++
	return v, nil
}

func (s *sliceStream) Close() error {
	s.next = len(s.values)
	return nil
}

func nextAvailability(script []pagetl.Availability, call int) pagetl.Availability {
	if len(script) == 0 {
		return pagetl.Available
	}
	if call > len(script) {
		return script[len(script)-1]
	}
	return script[call-1]
}

// Verify the mocks implement the capability contracts
var (
	_ pagetl.DetectorCapability   = (*MockDetector)(nil)
	_ pagetl.TranslatorCapability = (*MockTranslator)(nil)
)
