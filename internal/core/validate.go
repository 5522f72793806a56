package core

import (
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	MaxUsernameLength    = 50
	MaxRoomNameLength    = 100
	MaxDisplayNameLength = 100
	MaxContentLength     = 5000
)

// normalizeUsername trims the claimed name and checks it is usable.
func normalizeUsername(username string) (string, error) {
	name := strings.TrimSpace(username)
	switch {
	case name == "":
		return "", invalidInput("username is required")
	case utf8.RuneCountInString(name) > MaxUsernameLength:
		return "", invalidInput("username is too long")
	case !utf8.ValidString(name):
		return "", invalidInput("username contains invalid characters")
	}
	return name, nil
}

func validateRoomName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return invalidInput("room name is required")
	case utf8.RuneCountInString(name) > MaxRoomNameLength:
		return invalidInput("room name is too long")
	case !utf8.ValidString(name):
		return invalidInput("room name contains invalid characters")
	}
	return nil
}

func validateDisplayName(name string) error {
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return invalidInput("display name is too long")
	}
	if !utf8.ValidString(name) {
		return invalidInput("display name contains invalid characters")
	}
	return nil
}

// validateContent rejects empty and whitespace-only message bodies.
func validateContent(content string) error {
	switch {
	case strings.TrimSpace(content) == "":
		return invalidInput("message content is required")
	case utf8.RuneCountInString(content) > MaxContentLength:
		return invalidInput("message is too long")
	case !utf8.ValidString(content):
		return invalidInput("message contains invalid characters")
	}
	return nil
}
