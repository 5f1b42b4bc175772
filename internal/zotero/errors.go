package zotero

import (
	"errors"
	"fmt"
)

// ErrInvalidKey indicates the API key is missing or lacks library access.
var ErrInvalidKey = errors.New("invalid or unauthorized Zotero API key")

// ErrRateLimited indicates the API rate limit was exceeded.
var ErrRateLimited = errors.New("zotero API rate limit exceeded")

// ServerError represents a 5xx error from the Zotero API.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Zotero server error: HTTP %d", e.StatusCode)
}

func isRetryable(err error) bool {
	var serverErr *ServerError
	return errors.Is(err, ErrRateLimited) || errors.As(err, &serverErr)
}
