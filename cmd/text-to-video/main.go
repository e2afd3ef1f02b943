// Command text-to-video turns a text prompt into a short looping animation.
//
// Subcommands:
//
//	serve      local web UI and JSON API
//	generate   write frames (and optionally a GIF) to disk
//	mcp        Model Context Protocol server on stdio
package main

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/benbenbuben/text-to-video-app/internal/config"
	"github.com/benbenbuben/text-to-video-app/internal/frames"
	"github.com/benbenbuben/text-to-video-app/internal/logging"
	"github.com/benbenbuben/text-to-video-app/internal/metrics"
)

// Persistent flags
var (
	logLevelFlag   string
	backendFlag    string
	frameCountFlag int
)

var rootCmd = &cobra.Command{
	Use:   "text-to-video",
	Short: "Generate short animations from text prompts",
	Long: `text-to-video calls a text-to-image inference API once per frame and
assembles the results into a short looping animation.

Configuration is read from the environment (and .env files). The Hugging Face
backend needs HUGGINGFACE_API_TOKEN; the Gemini backend needs GEMINI_API_KEY.

Examples:
  text-to-video serve --port 3000
  text-to-video generate "a cat playing piano" --out ./frames --gif
  text-to-video mcp`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Inference backend: huggingface or gemini (overrides BACKEND)")
	rootCmd.PersistentFlags().IntVar(&frameCountFlag, "frames", 0, "Number of frames to generate (overrides FRAME_COUNT)")

	rootCmd.AddCommand(serveCmd, generateCmd, mcpCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand.
type app struct {
	cfg      *config.Config
	pipeline *frames.Pipeline
}

// setup loads configuration, applies flag overrides, and builds the
// pipeline. metricsAllowed is false for commands that own stdout.
func setup(name string, metricsAllowed bool) *app {
	start := time.Now()

	config.LoadEnvFiles()
	if logLevelFlag != "" {
		os.Setenv("LOG_LEVEL", logLevelFlag)
	}
	if backendFlag != "" {
		os.Setenv("BACKEND", backendFlag)
	}
	if frameCountFlag > 0 {
		os.Setenv("FRAME_COUNT", strconv.Itoa(frameCountFlag))
	}

	cfg, err := config.Parse()
	if err != nil {
		logging.Init(logLevelFlag)
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(cfg.LogLevel)
	metrics.SetEnabled(metricsAllowed && cfg.MetricsEnabled)

	backend, err := cfg.NewBackend()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create inference backend")
	}
	settings := cfg.Settings()

	startup := logging.NewStartupLogger(name).
		Version(version).
		Config("backend", backend.Name()).
		Config("environment", cfg.Environment).
		Config("frameCount", strconv.Itoa(settings.FrameCount)).
		Config("frameDelay", settings.FrameDelay.String()).
		Config("bestCaseLatency", settings.BestCaseLatency().String()).
		Config("worstCaseLatency", settings.WorstCaseLatency().String()).
		Feature("metrics", metricsAllowed && cfg.MetricsEnabled).
		Feature("proxy", cfg.InferenceProxy != "").
		Feature("credential", backend.Ready() == nil)
	for _, warning := range settings.CeilingWarnings(cfg.PlatformCeiling) {
		startup.Warn(warning)
	}
	if err := backend.Ready(); err != nil {
		startup.Warn("Inference credential not usable, requests will fail with 503: " + err.Error())
	}
	startup.InitDuration(time.Since(start)).Log()

	return &app{cfg: cfg, pipeline: frames.NewPipeline(backend, settings)}
}
