// Package provider implements the detection and translation capabilities
// a service drives: a local lingua-go detector, an OpenAI-backed translator
// and scripted mocks for tests.
package provider

import (
	"strings"

	"github.com/ZaguanLabs/pagetl"
	"golang.org/x/text/language"
)

// knownLanguage reports whether code parses as a language tag with a known base.
func knownLanguage(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	tag, err := language.Parse(pagetl.ToHTMLLang(code))
	if err != nil {
		return false
	}
	_, conf := tag.Base()
	return conf != language.No
}
