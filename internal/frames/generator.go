package frames

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/benbenbuben/text-to-video-app/internal/inference"
	"github.com/benbenbuben/text-to-video-app/internal/metrics"
)

// Backend produces one image per prompt.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Ready reports whether the backend has a usable credential. It must not
	// perform network I/O.
	Ready() error
	// Generate makes exactly one upstream call.
	Generate(ctx context.Context, prompt string) (*inference.Image, error)
}

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc, backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Job is the state of one frame while it is being generated.
type Job struct {
	Index  int
	Total  int
	Prompt string
	// Attempt is the number of upstream calls made so far.
	Attempt int
}

// Generator runs the per-frame retry loop against a Backend.
type Generator struct {
	backend Backend
	policy  Policy
	sleep   SleepFunc
}

// Option configures a Generator or Pipeline.
type Option func(*options)

type options struct {
	sleep SleepFunc
}

// WithSleep replaces the wait between retries and frames. Tests use it to
// record waits instead of blocking.
func WithSleep(fn SleepFunc) Option {
	return func(o *options) {
		o.sleep = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{sleep: Sleep}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sleep == nil {
		o.sleep = Sleep
	}
	return o
}

// NewGenerator creates a Generator.
func NewGenerator(backend Backend, policy Policy, opts ...Option) *Generator {
	o := buildOptions(opts)
	return &Generator{backend: backend, policy: policy, sleep: o.sleep}
}

// Generate produces the image for job, retrying per the policy. job.Attempt
// is updated as calls are made. The returned error is always an *Error.
func (g *Generator) Generate(ctx context.Context, job *Job) (*inference.Image, error) {
	logger := zerolog.Ctx(ctx)

	if err := g.backend.Ready(); err != nil {
		return nil, &Error{Kind: KindConfig, Message: "Inference API credential is not configured", Err: err}
	}

	retries := make(map[class]int)
	for {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: KindTimeout, Message: "Generation was cancelled", Err: err}
		}

		job.Attempt++
		callStart := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, g.policy.CallTimeout)
		img, err := g.backend.Generate(callCtx, job.Prompt)
		out := classify(img, err, callCtx.Err(), ctx.Err())
		cancel()

		switch out.class {
		case classSuccess:
			logger.Debug().
				Int("frame", job.Index).
				Int("attempt", job.Attempt).
				Int("bytes", len(img.Data)).
				Dur("elapsed", time.Since(callStart)).
				Msg("Frame generated")
			return img, nil
		case classTerminal:
			logger.Warn().Err(out.cause).
				Int("frame", job.Index).
				Int("attempt", job.Attempt).
				Int("status", out.status).
				Msg("Upstream call failed, not retrying")
			return nil, out.terminal
		}

		retries[out.class]++
		n := retries[out.class]
		if n > g.policy.retries(out.class) || job.Attempt >= g.policy.MaxAttempts {
			logger.Warn().Err(out.cause).
				Int("frame", job.Index).
				Int("attempt", job.Attempt).
				Str("class", out.class.String()).
				Msg("Retry budget exhausted")
			return nil, exhaustedError(out, job.Attempt)
		}

		wait := g.policy.wait(out.class, n, out.estimate)
		logger.Info().Err(out.cause).
			Int("frame", job.Index).
			Int("attempt", job.Attempt).
			Str("class", out.class.String()).
			Int("retry", n).
			Int("max", g.policy.retries(out.class)).
			Int("status", out.status).
			Dur("wait", wait).
			Msg("Retrying upstream call")
		metrics.New(metrics.Namespace).
			Dimension("Backend", g.backend.Name()).
			Dimension("RetryClass", out.class.String()).
			Count("UpstreamRetry").
			Flush()

		if err := g.sleep(ctx, wait); err != nil {
			return nil, &Error{Kind: KindTimeout, Message: "Generation was cancelled", Err: err}
		}
	}
}
