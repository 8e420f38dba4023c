// Package messaging carries translation runs across process or context
// boundaries: JSON messages, an in-process bus, a Redis publisher and a
// content surface that talks to a remote page through a transport.
package messaging

import (
	"encoding/json"

	"github.com/ZaguanLabs/pagetl"
)

// Type discriminates messages on the wire.
type Type string

const (
	TypeStartTranslation      Type = "START_TRANSLATION"
	TypeGetStatus             Type = "GET_STATUS"
	TypeTranslateText         Type = "TRANSLATE_TEXT"
	TypeTranslatedText        Type = "TRANSLATED_TEXT"
	TypeModelDownloadProgress Type = "MODEL_DOWNLOAD_PROGRESS"
	TypeLanguageDetected      Type = "LANGUAGE_DETECTED"
	TypeTranslationStatus     Type = "TRANSLATION_STATUS"
	TypeTranslationChunk      Type = "TRANSLATION_CHUNK"
	TypeGetPageContent        Type = "GET_PAGE_CONTENT"
	TypePageContent           Type = "PAGE_CONTENT"
	TypeReplaceContent        Type = "REPLACE_CONTENT"
	TypeReplaceResult         Type = "REPLACE_RESULT"
	TypeError                 Type = "ERROR"
)

// Message is one wire message. Only the fields of its type are set.
type Message struct {
	Type  Type   `json:"type"`
	RunID string `json:"runId,omitempty"`

	// MODEL_DOWNLOAD_PROGRESS
	Progress  *float64         `json:"progress,omitempty"`
	ModelType pagetl.ModelType `json:"modelType,omitempty"`

	// LANGUAGE_DETECTED
	Language   string   `json:"language,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// TRANSLATION_STATUS, ERROR
	Status pagetl.Status `json:"status,omitempty"`
	Error  string        `json:"error,omitempty"`

	// TRANSLATION_CHUNK
	UnitID  string `json:"unitId,omitempty"`
	Partial string `json:"partial,omitempty"`

	// START_TRANSLATION, TRANSLATED_TEXT
	TargetLanguage string `json:"targetLanguage,omitempty"`

	// TRANSLATE_TEXT, TRANSLATED_TEXT
	Text            string `json:"text,omitempty"`
	AlreadyInTarget bool   `json:"alreadyInTarget,omitempty"`

	// PAGE_CONTENT, REPLACE_CONTENT
	Units []WireUnit `json:"units,omitempty"`

	// REPLACE_RESULT
	Applied int      `json:"applied,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// WireUnit is a unit or a translated unit on the wire.
type WireUnit struct {
	ID             string `json:"id"`
	Text           string `json:"text,omitempty"`
	Locator        string `json:"locator,omitempty"`
	TranslatedText string `json:"translatedText,omitempty"`
}

// Encode marshals m.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode unmarshals a message.
func Decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}

// StartTranslation asks the background side to run a translation.
func StartTranslation(targetLanguage string) Message {
	return Message{Type: TypeStartTranslation, TargetLanguage: targetLanguage}
}

// GetStatus asks the background side for its current status.
func GetStatus() Message {
	return Message{Type: TypeGetStatus}
}

// TranslateText asks the background side to translate a snippet.
func TranslateText(text string) Message {
	return Message{Type: TypeTranslateText, Text: text}
}

// TranslatedText answers TranslateText. Language carries the detected source.
func TranslatedText(res *pagetl.TextResult) Message {
	confidence := res.Confidence
	return Message{
		Type:            TypeTranslatedText,
		Text:            res.Text,
		Language:        res.SourceLanguage,
		Confidence:      &confidence,
		TargetLanguage:  res.TargetLanguage,
		AlreadyInTarget: res.AlreadyInTarget,
	}
}

// GetPageContent asks the content side to extract units.
func GetPageContent() Message {
	return Message{Type: TypeGetPageContent}
}

// PageContent answers GetPageContent.
func PageContent(units []pagetl.Unit) Message {
	wire := make([]WireUnit, len(units))
	for i, u := range units {
		wire[i] = WireUnit{ID: u.ID, Text: u.Text, Locator: u.Locator}
	}
	return Message{Type: TypePageContent, Units: wire}
}

// ReplaceContent asks the content side to apply translations.
func ReplaceContent(units []pagetl.TranslatedUnit) Message {
	wire := make([]WireUnit, len(units))
	for i, u := range units {
		wire[i] = WireUnit{ID: u.ID, TranslatedText: u.TranslatedText}
	}
	return Message{Type: TypeReplaceContent, Units: wire}
}

// ReplaceResult answers ReplaceContent.
func ReplaceResult(res pagetl.ReplaceResult) Message {
	return Message{Type: TypeReplaceResult, Applied: res.Applied, Skipped: res.Skipped}
}

// ContentUnits returns the units of a PAGE_CONTENT message.
func (m Message) ContentUnits() []pagetl.Unit {
	units := make([]pagetl.Unit, len(m.Units))
	for i, u := range m.Units {
		units[i] = pagetl.Unit{ID: u.ID, Text: u.Text, Locator: u.Locator}
	}
	return units
}

// TranslatedUnits returns the units of a REPLACE_CONTENT message.
func (m Message) TranslatedUnits() []pagetl.TranslatedUnit {
	units := make([]pagetl.TranslatedUnit, len(m.Units))
	for i, u := range m.Units {
		units[i] = pagetl.TranslatedUnit{ID: u.ID, TranslatedText: u.TranslatedText}
	}
	return units
}

// ReplaceOutcome returns the result carried by a REPLACE_RESULT message.
func (m Message) ReplaceOutcome() pagetl.ReplaceResult {
	return pagetl.ReplaceResult{Applied: m.Applied, Skipped: m.Skipped}
}

// FromEvent converts a run event to its wire message.
func FromEvent(ev pagetl.Event) Message {
	m := Message{RunID: ev.RunID}
	switch ev.Kind {
	case pagetl.EventProgress:
		progress := ev.Progress
		m.Type = TypeModelDownloadProgress
		m.Progress = &progress
		m.ModelType = ev.ModelType
	case pagetl.EventLanguageDetected:
		confidence := ev.Confidence
		m.Type = TypeLanguageDetected
		m.Language = ev.Language
		m.Confidence = &confidence
	case pagetl.EventChunk:
		m.Type = TypeTranslationChunk
		m.UnitID = ev.UnitID
		m.Partial = ev.Partial
	default:
		m.Type = TypeTranslationStatus
		m.Status = ev.Status
		if ev.Err != nil {
			m.Error = ev.Err.Error()
		}
	}
	return m
}
