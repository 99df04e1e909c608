// Package matching implements the text comparison primitives behind duplicate
// detection: Turkish-aware normalization, phone canonicalisation, and
// Levenshtein-based similarity scoring.
package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// foldTurkish maps Turkish letters onto their ASCII base so that diacritic
// spelling variants compare as equal. Uppercase forms are covered for inputs
// that bypass the lowercasing step.
func foldTurkish(r rune) rune {
	switch r {
	case 'ı', 'İ':
		return 'i'
	case 'ğ', 'Ğ':
		return 'g'
	case 'ü', 'Ü':
		return 'u'
	case 'ş', 'Ş':
		return 's'
	case 'ö', 'Ö':
		return 'o'
	case 'ç', 'Ç':
		return 'c'
	}
	return r
}

// Normalize lowercases the text with Turkish casing rules (İ→i, I→ı), folds
// Turkish letters to their ASCII base, and trims surrounding whitespace.
// Empty input yields an empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	lowered := cases.Lower(language.Turkish).String(text)
	return strings.TrimSpace(strings.Map(foldTurkish, lowered))
}

// NormalizePhone strips formatting characters and the leading country or trunk
// prefix so differently formatted numbers compare as equal. The write path
// stores the canonical form; the phone pass normalises before comparing.
func NormalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' || r == '+' {
			continue
		}
		b.WriteRune(r)
	}
	digits := b.String()
	// A 12-digit number starting with 90 carries the Turkish country code.
	if len(digits) == 12 && strings.HasPrefix(digits, "90") {
		digits = digits[2:]
	}
	return strings.TrimPrefix(digits, "0")
}
