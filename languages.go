package pagetl

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// RTLLanguages contains base language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
	"yi": true, // Yiddish
}

// LanguageNames maps locale codes to human-readable names for prompts.
// Codes missing here fall back to the CLDR English display name.
var LanguageNames = map[string]string{
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"fr_FR": "French (France)",
	"it_IT": "Italian (Italy)",
	"ja_JP": "Japanese (Japan)",
	"ko_KR": "Korean (South Korea)",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
	"nb_NO": "Norwegian Bokmål (Norway)",
}

// NormalizeLocale converts a language code to the underscore form (e.g., "es-ES" → "es_ES").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(strings.TrimSpace(langCode), "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "es_ES" → "es-ES").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(strings.TrimSpace(langCode), "_", "-")
}

// BaseLanguage returns the lowercase base language of a code ("pt" for "pt_BR").
// Codes that are not valid BCP 47 tags are split on the first separator.
func BaseLanguage(langCode string) string {
	tag, err := language.Parse(ToHTMLLang(langCode))
	if err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	parts := strings.FieldsFunc(langCode, func(r rune) bool { return r == '_' || r == '-' })
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[0])
}

// SameLanguage reports whether two codes share a base language.
func SameLanguage(a, b string) bool {
	base := BaseLanguage(a)
	return base != "" && base == BaseLanguage(b)
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if no name is known.
func GetLanguageName(langCode string) string {
	normalized := NormalizeLocale(langCode)
	if name, ok := LanguageNames[normalized]; ok {
		return name
	}
	tag, err := language.Parse(ToHTMLLang(langCode))
	if err != nil {
		return langCode
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return langCode
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(langCode string) string {
	if RTLLanguages[BaseLanguage(langCode)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(langCode string) bool {
	return GetDirection(langCode) == "rtl"
}
