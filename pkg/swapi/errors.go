package swapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents the kind of failure a fetch ended with.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures (no route, DNS, timeout).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassHTTP represents non-2xx responses.
	ErrorClassHTTP ErrorClass = "http"

	// ErrorClassParse represents bodies that could not be decoded.
	ErrorClassParse ErrorClass = "parse"
)

// Error is a classified fetch failure.
type Error struct {
	Class      ErrorClass
	URL        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("swapi %s error", e.Class)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of a fetch error, or "" if err is not a *Error.
func ClassOf(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return ClassOf(err) == ErrorClassNetwork }

// IsHTTP reports whether err is a non-2xx response.
func IsHTTP(err error) bool { return ClassOf(err) == ErrorClassHTTP }

// IsParse reports whether err is a body decoding failure.
func IsParse(err error) bool { return ClassOf(err) == ErrorClassParse }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// shouldRetry determines if a failure is worth another attempt.
func shouldRetry(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Class {
	case ErrorClassNetwork:
		return true
	case ErrorClassHTTP:
		// 4xx will not change on retry, except throttling
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}
