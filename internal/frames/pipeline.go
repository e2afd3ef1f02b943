// Package frames turns a text prompt into an ordered sequence of generated
// images. A Pipeline asks a Generator for one frame at a time; the Generator
// owns the per-call retry loop and classifies every upstream failure into a
// Kind the HTTP layer can map to a status code.
package frames

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/benbenbuben/text-to-video-app/internal/metrics"
)

// OutputType is the type tag reported alongside a generated sequence.
const OutputType = "image-sequence"

// Request is the user input for one generation.
type Request struct {
	Text string `json:"text"`
}

// Result is an ordered list of base64-encoded frames. It is only returned
// when every frame succeeded.
type Result struct {
	Frames []string
	// MIMETypes holds the upstream content type of each frame, same order.
	MIMETypes []string
}

// FramePrompt builds the prompt for frame i (0-based) of total.
func FramePrompt(text string, i, total int) string {
	return fmt.Sprintf("%s, frame %d of %d", text, i+1, total)
}

// Pipeline generates N frames sequentially.
type Pipeline struct {
	backend   Backend
	settings  Settings
	generator *Generator
	sleep     SleepFunc
}

// NewPipeline creates a Pipeline. Options are shared with the Generator.
func NewPipeline(backend Backend, settings Settings, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	return &Pipeline{
		backend:   backend,
		settings:  settings,
		generator: NewGenerator(backend, settings.Policy, opts...),
		sleep:     o.sleep,
	}
}

// Settings returns the pipeline's settings.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Backend returns the name of the backend frames are generated with.
func (p *Pipeline) Backend() string {
	return p.backend.Name()
}

// Generate produces all frames for text or returns the first frame error.
func (p *Pipeline) Generate(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Kind: KindInvalidInput, Message: "Text is required"}
	}
	if err := p.backend.Ready(); err != nil {
		p.recordFailure(KindConfig)
		return nil, &Error{Kind: KindConfig, Message: "Inference API credential is not configured", Err: err}
	}

	logger := zerolog.Ctx(ctx)
	total := p.settings.FrameCount
	start := time.Now()
	result := &Result{
		Frames:    make([]string, 0, total),
		MIMETypes: make([]string, 0, total),
	}
	attempts := 0
	outputBytes := 0

	for i := 0; i < total; i++ {
		job := &Job{Index: i, Total: total, Prompt: FramePrompt(text, i, total)}
		logger.Info().Int("frame", i+1).Int("total", total).Msg("Generating frame")

		frameStart := time.Now()
		img, err := p.generator.Generate(ctx, job)
		attempts += job.Attempt
		if err != nil {
			kind := KindOf(err)
			logger.Error().Err(err).
				Int("frame", i+1).
				Int("total", total).
				Int("attempts", job.Attempt).
				Str("kind", kind.String()).
				Msg("Frame generation failed")
			p.recordFailure(kind)
			return nil, fmt.Errorf("frame %d/%d: %w", i+1, total, err)
		}

		evt := logger.Info().
			Int("frame", i+1).
			Int("total", total).
			Int("attempts", job.Attempt).
			Int("bytes", len(img.Data)).
			Str("mimeType", img.MIMEType).
			Dur("elapsed", time.Since(frameStart))
		if w, h, _, err := img.Dimensions(); err == nil {
			evt = evt.Int("width", w).Int("height", h)
		}
		evt.Msg("Frame complete")

		outputBytes += len(img.Data)
		result.Frames = append(result.Frames, base64.StdEncoding.EncodeToString(img.Data))
		result.MIMETypes = append(result.MIMETypes, img.MIMEType)

		if i < total-1 && p.settings.FrameDelay > 0 {
			if err := p.sleep(ctx, p.settings.FrameDelay); err != nil {
				p.recordFailure(KindTimeout)
				return nil, fmt.Errorf("frame %d/%d: %w", i+2, total,
					&Error{Kind: KindTimeout, Message: "Generation was cancelled", Err: err})
			}
		}
	}

	elapsed := time.Since(start)
	logger.Info().
		Int("frames", total).
		Int("attempts", attempts).
		Str("backend", p.backend.Name()).
		Dur("elapsed", elapsed).
		Msg("Generation complete")
	metrics.New(metrics.Namespace).
		Dimension("Backend", p.backend.Name()).
		Metric("FramesGenerated", float64(total), metrics.UnitCount).
		Metric("UpstreamCalls", float64(attempts), metrics.UnitCount).
		Metric("GenerationLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("OutputBytes", float64(outputBytes), metrics.UnitBytes).
		Flush()

	return result, nil
}

func (p *Pipeline) recordFailure(kind Kind) {
	metrics.New(metrics.Namespace).
		Dimension("Backend", p.backend.Name()).
		Dimension("ErrorKind", kind.String()).
		Count("GenerationFailed").
		Flush()
}
