package export

import (
	"strings"
	"unicode"
)

// maxFileNameRunes bounds download names built from user text.
const maxFileNameRunes = 80

// SanitizeName keeps letters, digits and a little punctuation from user text
// such as a timeline title. Control characters are dropped, anything else
// becomes '_'. maxLen counts runes; zero means unbounded.
func SanitizeName(s string, maxLen int) string {
	cleaned := strings.TrimSpace(strings.Map(nameRune, s))
	if maxLen <= 0 {
		return cleaned
	}
	if runes := []rune(cleaned); len(runes) > maxLen {
		cleaned = strings.TrimSpace(string(runes[:maxLen]))
	}
	return cleaned
}

func nameRune(r rune) rune {
	switch {
	case unicode.IsControl(r):
		return -1
	case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(" -_.,()", r):
		return r
	default:
		return '_'
	}
}

// FileName builds a safe download name from a title, falling back when the
// title sanitizes to nothing. ext includes the dot.
func FileName(title, fallback, ext string) string {
	name := strings.Trim(SanitizeName(title, maxFileNameRunes), ". ")
	if name == "" {
		name = fallback
	}
	return strings.ReplaceAll(name, " ", "_") + ext
}
