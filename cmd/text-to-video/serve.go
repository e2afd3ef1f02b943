package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/benbenbuben/text-to-video-app/internal/server"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

var (
	portFlag int
	hostFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Long: `serve starts a local web server with the prompt form at / and the
conversion API at /api/convert.

Examples:
  text-to-video serve
  text-to-video serve --port 8080 --host 0.0.0.0`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&hostFlag, "host", "", "Interface to bind (overrides HOST)")
}

func runServe(cmd *cobra.Command, args []string) {
	if portFlag > 0 {
		os.Setenv("PORT", fmt.Sprint(portFlag))
	}
	if hostFlag != "" {
		os.Setenv("HOST", hostFlag)
	}
	a := setup("serve", true)

	frontend, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access embedded frontend")
	}

	handler := server.New(server.Options{
		Generator:   a.pipeline,
		Production:  a.cfg.IsProduction(),
		CORSOrigins: a.cfg.CORSOrigins,
		Frontend:    frontend,
	})

	// The write timeout must cover a worst-case generation.
	writeTimeout := a.pipeline.Settings().WorstCaseLatency() + 30*time.Second
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Str("addr", srv.Addr).Dur("writeTimeout", writeTimeout).Msg("Starting web server")
	fmt.Printf("\n  Text to Video: http://%s\n\n", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
