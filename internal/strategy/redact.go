package strategy

import (
	"strings"

	"github.com/raaihank/fieldmask/internal/policy"
)

// DefaultRedaction is the replacement used when a redact rule gives none.
const DefaultRedaction = "[REDACTED]"

// Redact returns the rule's replacement, or the default redaction token.
func (a *Applier) Redact(strat *policy.MaskingStrategy) string {
	if strat.Replacement != "" {
		return strat.Replacement
	}
	return DefaultRedaction
}

// PartialRedact keeps keepFirst leading and keepLast trailing characters and
// fills the middle with the mask character. When keepFirst+keepLast covers
// the whole value, the value is returned unchanged; callers rely on that
// behavior for short values.
func PartialRedact(value string, keepFirst, keepLast int, maskChar string) string {
	if value == "" {
		return ""
	}
	if keepFirst < 0 {
		keepFirst = 0
	}
	if keepLast < 0 {
		keepLast = 0
	}
	if maskChar == "" {
		maskChar = "*"
	}

	runes := []rune(value)
	if keepFirst+keepLast >= len(runes) {
		return value
	}

	middle := strings.Repeat(maskChar, len(runes)-keepFirst-keepLast)
	return string(runes[:keepFirst]) + middle + string(runes[len(runes)-keepLast:])
}
