package bot

import "strings"

// Accepted carrier prefixes for target numbers (XL/Axis).
var validCarrierPrefixes = []string{"62817", "62818", "62819", "62877", "62878"}

// NormalizeNumber canonicalizes a phone-number-shaped input: non-digits
// are stripped, a leading 0 becomes the 62 country code, and a missing
// country code is prepended.
func NormalizeNumber(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	number := b.String()

	switch {
	case number == "":
		return ""
	case strings.HasPrefix(number, "0"):
		return "62" + number[1:]
	case !strings.HasPrefix(number, "62"):
		return "62" + number
	}
	return number
}

// ValidateTargetNumber normalizes the input and checks it is a valid
// XL/Axis number: one of the accepted carrier prefixes and 11-13 digits.
func ValidateTargetNumber(input string) (string, bool) {
	number := NormalizeNumber(input)
	if len(number) < 11 || len(number) > 13 {
		return number, false
	}
	for _, prefix := range validCarrierPrefixes {
		if strings.HasPrefix(number, prefix) {
			return number, true
		}
	}
	return number, false
}
