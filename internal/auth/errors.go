package auth

import "net/http"

// Challenge error codes reported in the WWW-Authenticate header.
const (
	ErrorInvalidRequest    = "invalid_request"
	ErrorInvalidToken      = "invalid_token"
	ErrorInsufficientScope = "insufficient_scope"
)

// Error describes a rejected credential. Code and StatusCode drive the
// HTTP response and the challenge header advertised to the client.
type Error struct {
	Message    string
	Code       string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

func invalidToken(message string) *Error {
	return &Error{Message: message, Code: ErrorInvalidToken, StatusCode: http.StatusUnauthorized}
}

func invalidRequest(message string) *Error {
	return &Error{Message: message, Code: ErrorInvalidRequest, StatusCode: http.StatusUnauthorized}
}
