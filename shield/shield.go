// Package shield hides inline code spans from the translation step and puts
// them back afterwards.
//
// Protect replaces every <code>...</code> span with a short indexed
// placeholder such as <1:world()>. The index is carried as digits so that
// translation cannot change its case or spacing; the hint after the colon
// is a lossy copy of the span's text that only helps the model keep the
// sentence grammatical. Restore swaps placeholders back by index and leaves
// anything it cannot resolve untouched.
package shield

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxHintRunes caps the length of a placeholder hint.
const MaxHintRunes = 32

var (
	codePattern        = regexp.MustCompile(`(?is)<code(?:\s[^>]*)?>.*?</code\s*>`)
	placeholderPattern = regexp.MustCompile(`(?i)<\s*(\d+)\s*(?::[^<>]*)?>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
)

// Table holds the original protected spans. Entry i belongs to placeholder i+1.
type Table []string

// Lookup returns the span for a 1-based placeholder index.
func (t Table) Lookup(index int) (string, bool) {
	if index < 1 || index > len(t) {
		return "", false
	}
	return t[index-1], true
}

// Stats counts the outcome of a restore.
type Stats struct {
	Restored int // Placeholders replaced by their original span
	Missed   int // Placeholder-shaped tokens left as they were
}

// Protect replaces inline code spans in text with indexed placeholders.
func Protect(text string) (string, Table) {
	var table Table
	processed := codePattern.ReplaceAllStringFunc(text, func(match string) string {
		table = append(table, match)
		return placeholder(len(table), hint(match))
	})
	return processed, table
}

// Restore puts the spans recorded in table back into text.
func Restore(text string, table Table) string {
	restored, _ := RestoreStats(text, table)
	return restored
}

// RestoreStats is Restore that also reports how many placeholders were resolved.
func RestoreStats(text string, table Table) (string, Stats) {
	var stats Stats
	restored := placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		sub := placeholderPattern.FindStringSubmatch(token)
		if len(sub) < 2 {
			stats.Missed++
			return token
		}
		index, err := strconv.Atoi(sub[1])
		if err != nil {
			stats.Missed++
			return token
		}
		original, ok := table.Lookup(index)
		if !ok {
			stats.Missed++
			return token
		}
		stats.Restored++
		return original
	})
	return restored, stats
}

func placeholder(index int, hint string) string {
	if hint == "" {
		return "<" + strconv.Itoa(index) + ">"
	}
	return "<" + strconv.Itoa(index) + ":" + hint + ">"
}

// hint reduces a code span to its visible text, safe to embed in a placeholder.
func hint(span string) string {
	text := tagPattern.ReplaceAllString(span, "")
	text = strings.NewReplacer("<", "", ">", "").Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > MaxHintRunes {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:MaxHintRunes]))
	}
	return text
}
