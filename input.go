package parley

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize bounds a single user utterance, in bytes. Override
// per engine with WithMaxInputSize.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput validates one user utterance against the byte limit and
// UTF-8 well-formedness, and strips control characters other than newline,
// tab and carriage return. A limit of zero or less falls back to
// DefaultMaxInputSize.
//
// Oversized input is rejected rather than truncated; truncating would hand
// the model a different utterance than the one the user produced.
func SanitizeInput(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Pasted escape sequences and stray control bytes poison logs and
	// transcripts; only whitespace controls survive.
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, input), nil
}
