// Package normalizers derives canonical matching keys from raw contact
// fields. All functions are pure string transforms with no I/O.
package normalizers

import (
	"strings"
	"unicode"
)

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// EmailKey derives the canonical matching key for an email address
// (trim, lowercase). Returns "" for blank input, which excludes the
// record from grouping.
func EmailKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PhoneKey derives the canonical matching key for a phone number.
//
// The raw value is reduced to digits, then:
//   - empty -> "" (excluded from grouping)
//   - a leading "00" international prefix is dropped; the remainder is
//     assumed to already carry a country code
//   - digits already starting with the configured default country code are
//     kept as-is
//   - a single leading "0" (national format) is replaced with the configured
//     default country code
//   - otherwise the digits are kept unchanged; without a country code there
//     is no basis for international inference
func PhoneKey(s, defaultCountryCode string) string {
	digits := DigitsOnly(s)
	if digits == "" {
		return ""
	}

	if strings.HasPrefix(digits, "00") {
		return digits[2:]
	}

	if defaultCountryCode != "" {
		if strings.HasPrefix(digits, defaultCountryCode) {
			return digits
		}
		if strings.HasPrefix(digits, "0") {
			return defaultCountryCode + digits[1:]
		}
	}

	return digits
}
