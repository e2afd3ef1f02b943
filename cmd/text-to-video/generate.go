package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/benbenbuben/text-to-video-app/internal/animation"
	"github.com/benbenbuben/text-to-video-app/internal/frames"
)

var (
	outDirFlag   string
	gifFlag      bool
	gifWidthFlag int
)

var generateCmd = &cobra.Command{
	Use:   "generate <text>",
	Short: "Generate frames for a prompt and write them to disk",
	Long: `generate runs the same pipeline as the web API and writes each frame
as frame-01.png, frame-02.png, ... into the output directory. With --gif the
frames are also assembled into animation.gif at 200ms per frame.

Examples:
  text-to-video generate "a cat playing piano"
  text-to-video generate "sunset over the sea" --out ./sunset --gif --frames 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&outDirFlag, "out", "o", ".", "Directory to write frames into")
	generateCmd.Flags().BoolVar(&gifFlag, "gif", false, "Also write an animated GIF")
	generateCmd.Flags().IntVar(&gifWidthFlag, "gif-width", 0, "Maximum GIF width in pixels (0 = original size)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a := setup("generate", false)
	text := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := a.pipeline.Generate(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("kind", frames.KindOf(err).String()).Msg("Generation failed")
		return fmt.Errorf("%s: %w", frames.PublicMessage(err), err)
	}

	paths, err := writeFrames(outDirFlag, result)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}

	if gifFlag {
		gifPath, err := writeGIF(outDirFlag, result, gifWidthFlag)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), gifPath)
	}
	return nil
}

// writeFrames decodes and writes every frame, returning the file paths.
func writeFrames(dir string, result *frames.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := animation.DecodeBase64(result.Frames)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(data))
	for i, frame := range data {
		mimeType := ""
		if i < len(result.MIMETypes) {
			mimeType = result.MIMETypes[i]
		}
		path := filepath.Join(dir, fmt.Sprintf("frame-%02d%s", i+1, extensionFor(mimeType)))
		if err := os.WriteFile(path, frame, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeGIF(dir string, result *frames.Result, maxWidth int) (string, error) {
	data, err := animation.DecodeBase64(result.Frames)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := animation.EncodeGIF(&buf, data, animation.Options{MaxWidth: maxWidth}); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "animation.gif")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
