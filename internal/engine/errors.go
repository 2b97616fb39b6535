// Package engine holds the provider-agnostic chat types shared by the
// providers and the conversation controller.
// This file contains error classification for provider failures.

package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorClass describes what kind of provider failure occurred.
// The conversation core never retries; the class is reported to the user.
type ErrorClass string

const (
	ClassRateLimit ErrorClass = "rate_limit"
	ClassServer    ErrorClass = "server"
	ClassNetwork   ErrorClass = "network"
	ClassTimeout   ErrorClass = "timeout"
	ClassAuth      ErrorClass = "auth"
	ClassQuota     ErrorClass = "quota"
	ClassRequest   ErrorClass = "bad_request"
	ClassUnknown   ErrorClass = "unknown"
)

// EngineError wraps provider errors with classification metadata.
type EngineError struct {
	Err        error
	Class      ErrorClass
	HTTPStatus int    // HTTP status code if applicable
	RetryAfter string // Retry-After header value if present
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("engine error: %s", e.Class)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// ClassifyLLMError classifies an error from an LLM provider call.
func ClassifyLLMError(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Class
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return ClassRateLimit
	case strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid api key"):
		return ClassAuth
	case strings.Contains(errStr, "402") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing"):
		return ClassQuota
	case strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable"):
		return ClassServer
	case strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded"):
		return ClassTimeout
	case strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network"):
		return ClassNetwork
	case strings.Contains(errStr, "400") ||
		strings.Contains(errStr, "bad request") ||
		strings.Contains(errStr, "invalid request"):
		return ClassRequest
	}

	return ClassUnknown
}

// WrapLLMError wraps an LLM provider error with classification metadata.
func WrapLLMError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}

	class := ClassifyLLMError(err)
	switch httpStatus {
	case http.StatusTooManyRequests:
		class = ClassRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		class = ClassAuth
	case http.StatusPaymentRequired:
		class = ClassQuota
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		class = ClassTimeout
	}

	return &EngineError{
		Err:        err,
		Class:      class,
		HTTPStatus: httpStatus,
		RetryAfter: retryAfter,
	}
}

// ExtractErrorMetadata pulls an HTTP status code and Retry-After value out of
// an SDK error message.
func ExtractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	errStr := err.Error()
	var httpStatus int
	var retryAfter string

	for _, code := range []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusPaymentRequired,
		http.StatusBadRequest,
	} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			httpStatus = code
			break
		}
	}

	lower := strings.ToLower(errStr)
	for _, marker := range []string{"retry-after", "retry after"} {
		if idx := strings.Index(lower, marker); idx != -1 {
			parts := strings.Fields(strings.TrimLeft(errStr[idx+len(marker):], ": "))
			if len(parts) > 0 {
				retryAfter = parts[0]
			}
			break
		}
	}

	return httpStatus, retryAfter
}
