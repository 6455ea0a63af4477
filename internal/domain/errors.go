package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested document, collection or database does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrServerOffline indicates the Appwrite endpoint is unreachable
	ErrServerOffline = errors.New("appwrite endpoint is unreachable")

	// ErrUnauthorized indicates there is no valid session or key for the request
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidTarget indicates a sync unit was given incomplete identifiers
	ErrInvalidTarget = errors.New("invalid sync target")
)

// ServiceError is a failure reported by the Appwrite API
type ServiceError struct {
	Code    int    `json:"code"`    // HTTP status code
	Type    string `json:"type"`    // Machine-readable type, e.g. "document_not_found"
	Message string `json:"message"` // Human-readable message
}

func (e *ServiceError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("appwrite %d %s: %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("appwrite %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known status codes onto the sentinel errors so callers
// can use errors.Is without inspecting codes.
func (e *ServiceError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}
