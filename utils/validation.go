package utils

import (
	"regexp"
	"strings"
)

var zambianPhoneRegex = regexp.MustCompile(`^(\+260|0)?[7-9][0-9]{8}$`)

// ValidatePhoneNumber checks a Zambian mobile number in local or
// international form.
func ValidatePhoneNumber(phone string) bool {
	return zambianPhoneRegex.MatchString(strings.ReplaceAll(phone, " ", ""))
}

// NormalizePhoneNumber rewrites a Zambian mobile number to +260 form, which
// is what every mobile-money rail expects.
func NormalizePhoneNumber(phone string) string {
	normalized := strings.ReplaceAll(phone, " ", "")
	if strings.HasPrefix(normalized, "0") {
		return "+260" + normalized[1:]
	}
	if !strings.HasPrefix(normalized, "+260") {
		return "+260" + normalized
	}
	return normalized
}
