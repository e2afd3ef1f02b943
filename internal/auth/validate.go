package auth

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// TokenPrefix is the prefix every Hugging Face user access token carries.
	TokenPrefix = "hf_"

	// MinTokenLength rejects truncated or placeholder tokens.
	MinTokenLength = 30
)

// ValidationError represents a specific type of credential validation failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no credential was found.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeMalformedKey indicates the credential has the wrong shape.
	ErrTypeMalformedKey
)

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateToken checks the shape of a Hugging Face token without making any
// network call. It returns nil for a plausible token, or a ValidationError
// describing why the token cannot be used.
func ValidateToken(token string) error {
	if token == "" {
		return &ValidationError{
			Type:    ErrTypeNoKey,
			Message: "inference token is not configured",
		}
	}

	if strings.TrimSpace(token) != token || strings.ContainsAny(token, " \t\r\n") {
		log.Error().Msg("Inference token contains whitespace")
		return &ValidationError{
			Type:    ErrTypeMalformedKey,
			Message: "inference token contains whitespace",
		}
	}

	if !strings.HasPrefix(token, TokenPrefix) {
		log.Error().Str("token", Redact(token)).Msg("Inference token has unexpected prefix")
		return &ValidationError{
			Type:    ErrTypeMalformedKey,
			Message: "inference token must start with " + TokenPrefix,
		}
	}

	if len(token) < MinTokenLength {
		log.Error().Int("length", len(token)).Msg("Inference token is too short")
		return &ValidationError{
			Type:    ErrTypeMalformedKey,
			Message: "inference token is too short",
		}
	}

	return nil
}

// ValidateAPIKey checks that a Gemini API key is present.
func ValidateAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return &ValidationError{
			Type:    ErrTypeNoKey,
			Message: "Gemini API key is not configured. Set " + GeminiKeyEnvVar,
		}
	}
	return nil
}
