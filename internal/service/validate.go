package service

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength        = 3
	maxNameLength        = 50
	maxDescriptionLength = 500
)

// validateName enforces the shared 3..50 rune rule for workspace and room
// names. Leading and trailing whitespace does not count toward the length.
func validateName(field, name string) (string, *ValidationError) {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n < minNameLength || n > maxNameLength {
		return "", newValidationError(field,
			fmt.Sprintf("must be between %d and %d characters", minNameLength, maxNameLength))
	}
	return trimmed, nil
}

func validateDescription(field string, description *string) *ValidationError {
	if description == nil {
		return nil
	}
	if utf8.RuneCountInString(*description) > maxDescriptionLength {
		return newValidationError(field,
			fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}
	return nil
}

func validateHTTPURL(field string, raw *string) *ValidationError {
	if raw == nil || *raw == "" {
		return nil
	}
	u, err := url.Parse(*raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return newValidationError(field, "must be a valid http or https URL")
	}
	return nil
}

func validateEmail(field, email string) (string, *ValidationError) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(trimmed, "@")
	if at < 1 || at == len(trimmed)-1 || !strings.Contains(trimmed[at+1:], ".") {
		return "", newValidationError(field, "must be a valid email address")
	}
	return trimmed, nil
}
