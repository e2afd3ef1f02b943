package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// TokenEnvVar holds the Hugging Face inference token.
	TokenEnvVar = "HUGGINGFACE_API_TOKEN"

	// GeminiKeyEnvVar holds the Gemini API key used by the Imagen backend.
	GeminiKeyEnvVar = "GEMINI_API_KEY"
)

// GetToken retrieves the Hugging Face inference token.
// Priority order:
//  1. the explicit value (from config or flags), if non-empty
//  2. HUGGINGFACE_API_TOKEN environment variable
//
// The returned token has surrounding whitespace removed. An empty result is
// reported as a ValidationError of type ErrTypeNoKey.
func GetToken(explicit string) (string, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		log.Debug().Msg("Using inference token from configuration")
		return key, nil
	}

	if key := strings.TrimSpace(os.Getenv(TokenEnvVar)); key != "" {
		log.Debug().Msg("Using inference token from environment variable")
		return key, nil
	}

	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: fmt.Sprintf("inference token not found. Set %s", TokenEnvVar),
	}
}

// Redact returns a log-safe form of a secret: its first four characters
// followed by the length.
func Redact(secret string) string {
	if len(secret) <= 4 {
		return fmt.Sprintf("***(%d)", len(secret))
	}
	return fmt.Sprintf("%s***(%d)", secret[:4], len(secret))
}
