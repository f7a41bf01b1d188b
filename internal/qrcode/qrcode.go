// Package qrcode derives product label codes such as "IFLS001" and renders
// them as PNG images.
package qrcode

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	goqr "github.com/skip2/go-qrcode"
)

const (
	maxPrefix  = 4
	maxCounter = 999
)

// ErrExhausted is returned when every counter value for a prefix is taken.
var ErrExhausted = errors.New("qrcode: no free code for prefix")

var skipWords = map[string]bool{"spray": true, "ml": true, "gr": true, "kit": true}

// Prefix builds the letter part of a code from a product name: the first
// letter of each word longer than two characters, ignoring packaging words.
// Names yielding fewer than two letters fall back to their first three
// non-space characters.
func Prefix(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		if utf8.RuneCountInString(word) <= 2 || skipWords[strings.ToLower(word)] {
			continue
		}
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	prefix := b.String()
	if utf8.RuneCountInString(prefix) < 2 {
		compact := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, name)
		prefix = strings.ToUpper(truncate(compact, 3))
	}
	return truncate(prefix, maxPrefix)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Generate returns the first code for name whose counter is not in existing.
func Generate(name string, existing []string) (string, error) {
	taken := make(map[string]bool, len(existing))
	for _, code := range existing {
		taken[code] = true
	}
	prefix := Prefix(name)
	for n := 1; n <= maxCounter; n++ {
		code := fmt.Sprintf("%s%03d", prefix, n)
		if !taken[code] {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrExhausted, prefix)
}

// PNG renders code as a square PNG of size pixels.
func PNG(code string, size int) ([]byte, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("qrcode: empty code")
	}
	if size <= 0 {
		size = 256
	}
	png, err := goqr.Encode(code, goqr.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode %q: %w", code, err)
	}
	return png, nil
}
