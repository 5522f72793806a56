package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidInput      = "invalid_input"
	ErrCodeNameTaken         = "name_taken"
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeRoomExists        = "room_exists"
	ErrCodeRecipientNotFound = "recipient_not_found"
	ErrCodeSessionNotFound   = "session_not_found"
	ErrCodeBadRequest        = "bad_request"
)

var (
	ErrInvalidInput      = coreError(ErrCodeInvalidInput, "invalid input")
	ErrNameTaken         = coreError(ErrCodeNameTaken, "username is already taken")
	ErrRoomNotFound      = coreError(ErrCodeRoomNotFound, "room not found")
	ErrRoomExists        = coreError(ErrCodeRoomExists, "room already exists")
	ErrRecipientNotFound = coreError(ErrCodeRecipientNotFound, "recipient not found")
	ErrSessionNotFound   = coreError(ErrCodeSessionNotFound, "user not found")
	ErrBadRequest        = coreError(ErrCodeBadRequest, "bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is matches any CoreError carrying the same code, so a detailed
// invalidInput("...") still satisfies errors.Is(err, ErrInvalidInput).
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func invalidInput(msg string) *CoreError {
	return coreError(ErrCodeInvalidInput, msg)
}

// AsCoreError converts any error into a CoreError, defaulting to bad_request.
func AsCoreError(err error) *CoreError {
	if err == nil {
		return nil
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return coreError(ErrCodeBadRequest, err.Error())
}
