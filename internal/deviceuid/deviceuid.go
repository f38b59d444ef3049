// Package deviceuid normalizes and validates the 96-bit hardware identifiers
// printed on alignment-measurement devices.
//
// A UID is canonically 24 hexadecimal characters. Users type it with spaces or
// hyphens, and the dashboard shows it in hyphen-joined groups of four; both are
// presentation forms that Normalize reverses without loss.
package deviceuid

import (
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
)

// Length is the number of hex characters in a canonical UID.
const Length = 24

const groupSize = 4

var ErrInvalid = errors.New("invalid_device_uid")

// Normalize strips whitespace and hyphens. It does not validate.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// IsValid reports whether canonical is exactly 24 hex characters, in either case.
func IsValid(canonical string) bool {
	if len(canonical) != Length {
		return false
	}
	for i := 0; i < len(canonical); i++ {
		if !isHex(canonical[i]) {
			return false
		}
	}
	return true
}

// Format regroups a UID into hyphen-joined chunks of four characters for
// display. The input is normalized first, so Format is idempotent.
func Format(canonical string) string {
	clean := Normalize(canonical)
	if clean == "" {
		return canonical
	}
	var b strings.Builder
	b.Grow(len(clean) + len(clean)/groupSize)
	for i := 0; i < len(clean); i += groupSize {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + groupSize
		if end > len(clean) {
			end = len(clean)
		}
		b.WriteString(clean[i:end])
	}
	return b.String()
}

// Canonical normalizes raw, validates it and upper-cases it. The result is the
// only representation that is ever sent to or stored by the hub.
func Canonical(raw string) (string, error) {
	clean := Normalize(raw)
	if !IsValid(clean) {
		return "", ErrInvalid
	}
	return strings.ToUpper(clean), nil
}

// Bytes decodes a UID into its 12 raw bytes.
func Bytes(raw string) ([12]byte, error) {
	var out [12]byte
	canonical, err := Canonical(raw)
	if err != nil {
		return out, err
	}
	if _, err := hex.Decode(out[:], []byte(canonical)); err != nil {
		return out, ErrInvalid
	}
	return out, nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
