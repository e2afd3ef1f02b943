// Package inference provides clients for the external text-to-image APIs.
//
// A client performs exactly one upstream call per Generate and never retries;
// retry policy belongs to the caller. Non-2xx responses are returned as
// *StatusError so the caller can classify them by status code and body.
package inference

import (
	"errors"
	"fmt"
	"strings"
)

// ErrResponseTooLarge is returned when a successful response body exceeds
// the read limit. The image would be truncated, so it is discarded.
var ErrResponseTooLarge = errors.New("inference API response exceeds size limit")

// Image is one image payload returned by an inference backend.
type Image struct {
	Data     []byte
	MIMEType string
}

// StatusError is a non-2xx response from the inference API.
type StatusError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("inference API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("inference API returned status %d: %s", e.StatusCode, truncateString(body, 200))
}

// truncateString shortens s to at most maxLen bytes, appending "..." when cut.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
