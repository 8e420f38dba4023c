package pagetl

import (
	"context"
	"strings"

	"github.com/ZaguanLabs/pagetl/shield"
)

// TextResult is the outcome of a free-text translation.
type TextResult struct {
	Text            string  `json:"text"` // Translation, or the input when already in the target language
	SourceLanguage  string  `json:"sourceLanguage"`
	Confidence      float64 `json:"confidence"`
	TargetLanguage  string  `json:"targetLanguage"`
	AlreadyInTarget bool    `json:"alreadyInTarget"`
}

// TranslateText translates a standalone snippet into the target language.
// It does not touch the content surface, emits no events and may run
// alongside a page run. Text already in the target language comes back
// unchanged with AlreadyInTarget set.
func (o *Orchestrator) TranslateText(ctx context.Context, text string) (*TextResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	avail, err := o.svc.CheckDetectorAvailability(ctx)
	if err != nil {
		return nil, &TranslationError{Message: "checking detector availability", Cause: err}
	}
	if avail == Unavailable {
		return nil, &TranslationError{Message: "detector unavailable", Cause: ErrCapabilityUnavailable}
	}

	detection, err := o.svc.DetectLanguage(ctx, visibleText(text), nil)
	if err != nil {
		return nil, err
	}

	result := &TextResult{
		SourceLanguage: detection.Language,
		Confidence:     detection.Confidence,
		TargetLanguage: o.targetLang,
	}
	if SameLanguage(detection.Language, o.targetLang) {
		result.Text = text
		result.AlreadyInTarget = true
		return result, nil
	}

	pair := LanguagePair{Source: detection.Language, Target: o.targetLang}
	avail, err = o.svc.CheckTranslatorAvailability(ctx, pair)
	if err != nil {
		return nil, &TranslationError{Message: "checking translator availability", Cause: err}
	}
	if avail == Unavailable {
		return nil, &TranslationError{Message: "unsupported language pair " + pair.String(), Cause: ErrUnsupportedLanguagePair}
	}

	protected, table := shield.Protect(text)
	translated, err := o.svc.Translate(ctx, protected, pair, nil)
	if err != nil {
		return nil, &TranslationError{Message: "translating text", Cause: err}
	}
	result.Text = shield.Restore(translated, table)

	o.logger.Debug("text translated", "pair", pair.String(), "runes", len([]rune(text)))
	return result, nil
}
