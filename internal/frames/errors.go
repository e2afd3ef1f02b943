package frames

import (
	"errors"
	"net/http"
)

// Kind classifies a generation failure. It decides both whether the generator
// retried internally and which HTTP status the caller surfaces.
type Kind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown Kind = iota
	// KindInvalidInput is a user-correctable request problem. Never retried.
	KindInvalidInput
	// KindConfig is an operator-correctable configuration problem. Never retried.
	KindConfig
	// KindRateLimited means the upstream rate limit outlasted the retry budget.
	KindRateLimited
	// KindTransient means a loading model or network failures outlasted the budget.
	KindTransient
	// KindTerminal is an upstream failure that is never retried (auth, HTML
	// outage page, malformed response, other status codes).
	KindTerminal
	// KindTimeout means the per-call timeout fired and the budget is spent.
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindInvalidInput: "invalid_input",
	KindConfig:       "config",
	KindRateLimited:  "rate_limited",
	KindTransient:    "transient",
	KindTerminal:     "terminal",
	KindTimeout:      "timeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// HTTPStatus maps a failure kind to the status returned to the browser.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindConfig, KindTransient:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified generation failure.
type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status, when one was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindUnknown
}

// PublicMessage returns the client-facing message for err: the classified
// message when err carries an *Error, otherwise a generic one.
func PublicMessage(err error) string {
	var genErr *Error
	if errors.As(err, &genErr) && genErr.Message != "" {
		return genErr.Message
	}
	return "Failed to generate content"
}
