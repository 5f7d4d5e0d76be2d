// Package validation holds the input rules shared by the auth and post
// services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Minimum lengths, measured on the trimmed input.
const (
	MinPasswordLength = 5
	MinNameLength     = 5
	MinTitleLength    = 5
	MinContentLength  = 5
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks that the address is well-formed.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("email is invalid")
	}
	return nil
}

// ValidatePassword checks the minimum password length.
func ValidatePassword(password string) error {
	if len(strings.TrimSpace(password)) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateName checks the minimum display-name length.
func ValidateName(name string) error {
	if len(strings.TrimSpace(name)) < MinNameLength {
		return fmt.Errorf("name must be at least %d characters", MinNameLength)
	}
	return nil
}

// ValidateTitle checks the minimum post title length.
func ValidateTitle(title string) error {
	if len(strings.TrimSpace(title)) < MinTitleLength {
		return fmt.Errorf("title must be at least %d characters", MinTitleLength)
	}
	return nil
}

// ValidateContent checks the minimum post body length.
func ValidateContent(content string) error {
	if len(strings.TrimSpace(content)) < MinContentLength {
		return fmt.Errorf("content must be at least %d characters", MinContentLength)
	}
	return nil
}
