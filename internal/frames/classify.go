package frames

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/benbenbuben/text-to-video-app/internal/inference"
)

// quotaMarker identifies the 429 body sent when the global request quota,
// rather than the short-term rate limit, is exhausted.
const quotaMarker = "Max requests total reached"

// class is the retry class of a single upstream call outcome.
type class int

const (
	classSuccess class = iota
	classLoading
	classQuota
	classRateLimit
	classNetwork
	classTimeout
	classTerminal
)

var classNames = map[class]string{
	classSuccess:   "success",
	classLoading:   "loading",
	classQuota:     "quota",
	classRateLimit: "rate_limit",
	classNetwork:   "network",
	classTimeout:   "timeout",
	classTerminal:  "terminal",
}

func (c class) String() string {
	return classNames[c]
}

// outcome is the classified result of one upstream call.
type outcome struct {
	class class
	// estimate is the upstream loading estimate for classLoading.
	estimate time.Duration
	// status is the upstream HTTP status, zero if none was received.
	status int
	// cause is the error returned by the backend, or a synthesized one.
	cause error
	// terminal is set for classTerminal.
	terminal *Error
}

// upstreamBody is the JSON error body returned by the inference API.
// The error field is usually a string but some endpoints send a list.
type upstreamBody struct {
	Error         json.RawMessage `json:"error"`
	EstimatedTime *float64        `json:"estimated_time"`
}

func (b upstreamBody) message() string {
	if len(b.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Error, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(b.Error, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return string(b.Error)
}

// classify maps one backend call result onto a retry class. callErr is the
// per-call context error observed right after the call returned, and
// parentErr is the error of the generation-wide context.
func classify(img *inference.Image, err error, callErr, parentErr error) outcome {
	if err == nil {
		if img == nil || len(img.Data) == 0 {
			return terminalOutcome(0, inference.ErrEmptyResponse, "Inference API returned an empty image")
		}
		if !strings.HasPrefix(img.MIMEType, "image/") {
			cause := fmt.Errorf("unexpected content type %q", img.MIMEType)
			return terminalOutcome(0, cause, "Inference API returned an unexpected response")
		}
		return outcome{class: classSuccess}
	}

	if parentErr != nil {
		return outcome{class: classTerminal, cause: err, terminal: &Error{
			Kind:    KindTimeout,
			Message: "Generation was cancelled",
			Err:     err,
		}}
	}

	var statusErr *inference.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr)
	}

	if errors.Is(err, inference.ErrEmptyResponse) {
		return terminalOutcome(0, err, "Inference API returned an empty image")
	}
	if errors.Is(err, inference.ErrResponseTooLarge) {
		return terminalOutcome(0, err, "Inference API returned an oversized image")
	}

	if errors.Is(callErr, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return outcome{class: classTimeout, cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcome{class: classTimeout, cause: err}
	}

	return outcome{class: classNetwork, cause: err}
}

func classifyStatus(statusErr *inference.StatusError) outcome {
	code := statusErr.StatusCode
	body := bytes.TrimSpace(statusErr.Body)

	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return terminalOutcome(code, statusErr, "Inference API rejected the credential")
	}
	if isHTML(statusErr.ContentType, body) {
		return terminalOutcome(code, statusErr, "Inference API returned an HTML page, the service may be down")
	}

	switch code {
	case http.StatusServiceUnavailable:
		parsed, err := parseBody(body)
		if err != nil {
			return terminalOutcome(code, fmt.Errorf("%w: %v", statusErr, err), "Inference API returned an unreadable response")
		}
		if !strings.Contains(strings.ToLower(parsed.message()), "loading") {
			return terminalOutcome(code, statusErr, "Inference API is unavailable")
		}
		var estimate time.Duration
		if parsed.EstimatedTime != nil && *parsed.EstimatedTime > 0 {
			estimate = time.Duration(*parsed.EstimatedTime * float64(time.Second))
		}
		return outcome{class: classLoading, status: code, estimate: estimate, cause: statusErr}

	case http.StatusTooManyRequests:
		if len(body) == 0 {
			return outcome{class: classRateLimit, status: code, cause: statusErr}
		}
		parsed, err := parseBody(body)
		if err != nil {
			return terminalOutcome(code, fmt.Errorf("%w: %v", statusErr, err), "Inference API returned an unreadable response")
		}
		if strings.Contains(parsed.message(), quotaMarker) {
			return outcome{class: classQuota, status: code, cause: statusErr}
		}
		return outcome{class: classRateLimit, status: code, cause: statusErr}
	}

	return terminalOutcome(code, statusErr, fmt.Sprintf("Inference API error (status %d)", code))
}

func terminalOutcome(status int, cause error, message string) outcome {
	return outcome{
		class:  classTerminal,
		status: status,
		cause:  cause,
		terminal: &Error{
			Kind:    KindTerminal,
			Message: message,
			Status:  status,
			Err:     cause,
		},
	}
}

func parseBody(body []byte) (upstreamBody, error) {
	var parsed upstreamBody
	if len(body) == 0 {
		return parsed, errors.New("empty response body")
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return parsed, fmt.Errorf("failed to parse response body: %w", err)
	}
	return parsed, nil
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	lower := bytes.ToLower(body)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

// exhaustedError builds the error returned when a retryable class runs out
// of budget.
func exhaustedError(o outcome, attempts int) *Error {
	var (
		kind    Kind
		message string
	)
	switch o.class {
	case classLoading:
		kind, message = KindTransient, "Model is still loading, please try again in a minute"
	case classQuota:
		kind, message = KindRateLimited, "Inference quota exhausted, please try again later"
	case classRateLimit:
		kind, message = KindRateLimited, "Too many requests to the inference API, please try again later"
	case classTimeout:
		kind, message = KindTimeout, "Inference request timed out"
	default:
		kind, message = KindTransient, "Could not reach the inference API"
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Status:  o.status,
		Err:     fmt.Errorf("gave up after %d attempts: %w", attempts, o.cause),
	}
}
