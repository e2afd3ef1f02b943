// Package lambdaboot holds the Lambda cold-start helpers: AWS config
// loading and fetching the inference token from SSM Parameter Store.
package lambdaboot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/benbenbuben/text-to-video-app/internal/config"
	"github.com/benbenbuben/text-to-video-app/internal/logging"
)

// ParameterGetter is the subset of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// InitAWS loads the default AWS config and creates an SSM client.
func InitAWS(ctx context.Context) (*ssm.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return ssm.NewFromConfig(cfg), nil
}

// LoadToken fills cfg.HuggingFaceToken from SSM when the environment did not
// provide one. It is a no-op for other backends or when the token is set.
func LoadToken(ctx context.Context, client ParameterGetter, cfg *config.Config) error {
	if cfg.Backend != config.BackendHuggingFace || cfg.HuggingFaceToken != "" {
		return nil
	}
	if cfg.SSMTokenParam == "" {
		return nil
	}

	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(cfg.SSMTokenParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to read token from SSM parameter %s: %w", cfg.SSMTokenParam, err)
	}
	var token string
	if result.Parameter != nil {
		token = strings.TrimSpace(aws.ToString(result.Parameter.Value))
	}
	if token == "" {
		return fmt.Errorf("SSM parameter %s has no value", cfg.SSMTokenParam)
	}
	cfg.HuggingFaceToken = token
	log.Debug().Str("param", cfg.SSMTokenParam).Dur("elapsed", time.Since(start)).Msg("Inference token loaded from SSM")
	return nil
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
