// Package main is the AWS Lambda entry point for the conversion API.
//
// It serves the same handler as the local server behind API Gateway
// (HTTP API, payload v2). The frontend is not served here.
//
// Endpoints:
//
//	POST /api/convert  generate an image sequence
//	GET  /api/health   health check
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/benbenbuben/text-to-video-app/internal/config"
	"github.com/benbenbuben/text-to-video-app/internal/frames"
	"github.com/benbenbuben/text-to-video-app/internal/lambdaboot"
	"github.com/benbenbuben/text-to-video-app/internal/logging"
	"github.com/benbenbuben/text-to-video-app/internal/metrics"
	"github.com/benbenbuben/text-to-video-app/internal/server"
)

var (
	commitHash = "dev"

	handler http.Handler
)

func init() {
	initStart := time.Now()

	cfg, err := config.Parse()
	if err != nil {
		logging.Init("info")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(cfg.LogLevel)
	// EMF is the metrics pipeline on Lambda regardless of METRICS_ENABLED.
	metrics.SetEnabled(true)

	startup := lambdaboot.StartupLog("convert-lambda", initStart).Version(commitHash)

	if cfg.Backend == config.BackendHuggingFace && cfg.HuggingFaceToken == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ssmClient, err := lambdaboot.InitAWS(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize AWS clients")
		}
		if err := lambdaboot.LoadToken(ctx, ssmClient, cfg); err != nil {
			// The handler still starts; requests report 503 until fixed.
			startup.Warn("Inference token unavailable: " + err.Error())
		}
		startup.SSMParam("huggingfaceToken", cfg.SSMTokenParam)
	}

	backend, err := cfg.NewBackend()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create inference backend")
	}
	settings := cfg.Settings()
	for _, warning := range settings.CeilingWarnings(cfg.PlatformCeiling) {
		startup.Warn(warning)
	}

	handler = server.New(server.Options{
		Generator:   frames.NewPipeline(backend, settings),
		Production:  cfg.IsProduction(),
		CORSOrigins: cfg.CORSOrigins,
	})

	startup.
		Config("backend", backend.Name()).
		Config("environment", cfg.Environment).
		Config("frameDelay", settings.FrameDelay.String()).
		Feature("credential", backend.Ready() == nil).
		InitDuration(time.Since(initStart)).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
