// Package phone canonicalizes phone numbers into the key used for
// planners, guests, contacts and guest response states.
package phone

import "strings"

// KeyLength is the number of digits in a canonical phone key.
const KeyLength = 10

// Normalize returns the ten trailing digits of s, which drops "+", "+1",
// punctuation and a leading country code "1". Inputs with fewer than ten
// digits are returned unchanged so the parser can reject them downstream.
func Normalize(s string) string {
	digits := Digits(s)
	if len(digits) < KeyLength {
		return s
	}
	return digits[len(digits)-KeyLength:]
}

// Digits strips every non-digit character.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid reports whether s carries at least a full canonical key.
func IsValid(s string) bool {
	return len(Digits(s)) >= KeyLength
}

// E164 renders a canonical key as a North American E.164 number.
func E164(key string) string {
	if len(key) == KeyLength {
		return "+1" + key
	}
	return key
}
