// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)

// ValidatePhone checks if a phone number looks like a dialable number
func ValidatePhone(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(phone)
	return phonePattern.MatchString(cleaned)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

func ValidateSlug(slug string) bool {
	return len(slug) <= 50 && slugPattern.MatchString(slug)
}
