package provider

import (
	"regexp"
	"strings"
)

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	e164Re     = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// FormatPhoneBR normalizes a raw phone string to E.164-like form, assuming
// Brazilian numbers when no country code is present:
//   - digits already starting with 55 get a "+" prefix;
//   - inputs that already match a generic international pattern are accepted,
//     gaining a "+" when missing;
//   - anything else is treated as a local number and prefixed with +55.
//
// The result is not guaranteed valid; callers must check ValidPhone.
func FormatPhoneBR(phone string) string {
	cleaned := nonDigitRe.ReplaceAllString(phone, "")
	if strings.HasPrefix(cleaned, "55") {
		return "+" + cleaned
	}
	if e164Re.MatchString(phone) {
		if strings.HasPrefix(phone, "+") {
			return phone
		}
		return "+" + phone
	}
	return "+55" + cleaned
}

// ValidPhone reports whether the normalized phone matches ^\+?[0-9]{10,15}$.
func ValidPhone(phone string) bool {
	return e164Re.MatchString(phone)
}
