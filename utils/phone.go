// utils/phone.go
package utils

import "strings"

// NormalizePhone converts a phone string to international digits
// (e.g. 5511999999999). Numbers without a country code are assumed to be
// Brazilian. It never fails: an empty result means the input had no digits
// and the caller must not use it, and short numbers come back unchanged.
func NormalizePhone(phone string) string {
	digits := DigitsOnly(phone)
	if digits == "" {
		return ""
	}

	// DDD + 9 + number
	if len(digits) == 11 && !strings.HasPrefix(digits, "0") {
		return "55" + digits
	}
	if len(digits) == 12 && strings.HasPrefix(digits, "55") {
		return digits
	}
	if len(digits) >= 10 {
		return "55" + digits
	}
	return digits
}

func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskPhone keeps the last four characters visible for logs.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
