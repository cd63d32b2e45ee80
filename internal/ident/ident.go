package ident

import (
	"strings"
	"unicode"
)

// Quote characters understood by SplitQualified.
const (
	DoubleQuote = '"'
	Backtick    = '`'
)

// SplitQualified splits a potentially schema-qualified identifier into its parts.
// Both double-quoted and backtick-quoted parts are accepted.
func SplitQualified(ident string) []string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil
	}
	var parts []string
	var buf strings.Builder
	var quote rune
	runes := []rune(ident)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0 && r == quote:
			if i+1 < len(runes) && runes[i+1] == quote {
				buf.WriteRune(r)
				i++
				continue
			}
			quote = 0
		case quote == 0 && (r == DoubleQuote || r == Backtick):
			quote = r
		case r == '.' && quote == 0:
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	parts = append(parts, strings.TrimSpace(buf.String()))
	return parts
}

// Unquote strips one level of identifier quoting from a single part.
func Unquote(part string) string {
	parts := SplitQualified(part)
	if len(parts) != 1 {
		return strings.TrimSpace(part)
	}
	return parts[0]
}

// Quote safely quotes a single identifier part with q.
func Quote(part string, q rune) string {
	s := string(q)
	return s + strings.ReplaceAll(part, s, s+s) + s
}

// QuoteIfNeeded quotes part only when it is not a plain identifier.
func QuoteIfNeeded(part string, q rune) string {
	if IsPlain(part) {
		return part
	}
	return Quote(part, q)
}

// IsPlain reports whether part can be used unquoted.
func IsPlain(part string) bool {
	if part == "" {
		return false
	}
	for i, r := range part {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}

// Qualified joins the non-empty parts with '.', quoting only parts that need it.
func Qualified(q rune, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, QuoteIfNeeded(p, q))
	}
	return strings.Join(out, ".")
}

// BaseTableName returns the last segment of a qualified identifier.
func BaseTableName(ident string) string {
	parts := SplitQualified(ident)
	if len(parts) == 0 {
		return strings.TrimSpace(ident)
	}
	return parts[len(parts)-1]
}
