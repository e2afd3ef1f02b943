package frames

import (
	"fmt"
	"time"
)

// Default tuning. Three frames with a two second gap keep a clean run well
// inside a 60 second platform ceiling; the retry waits do not, which is the
// documented trade-off reported by Settings.WorstCaseLatency.
const (
	DefaultFrameCount = 3
	DefaultFrameDelay = 2 * time.Second

	DefaultCallTimeout = 25 * time.Second

	DefaultLoadingRetries = 2
	DefaultLoadingWaitCap = 20 * time.Second

	DefaultQuotaRetries = 3
	DefaultQuotaWait    = 65 * time.Second

	DefaultRateLimitRetries = 2
	DefaultRateLimitWait    = 10 * time.Second

	DefaultNetworkRetries = 2
	DefaultNetworkWait    = 5 * time.Second

	DefaultTimeoutRetries = 0

	DefaultMaxAttempts = 6

	// MaxFrameCount bounds the configurable frame count.
	MaxFrameCount = 16
)

// Policy holds the per-failure-class retry budgets for one frame.
// A budget of N allows N retries of that class, so N+1 calls in total.
type Policy struct {
	// CallTimeout bounds each upstream call.
	CallTimeout time.Duration

	// LoadingRetries and LoadingWaitCap govern 503 "model is loading"
	// responses. The wait is the upstream estimate, capped.
	LoadingRetries int
	LoadingWaitCap time.Duration

	// QuotaRetries and QuotaWait govern 429 responses reporting the global
	// request quota as exhausted. QuotaWait should exceed the quota window.
	QuotaRetries int
	QuotaWait    time.Duration

	// RateLimitRetries and RateLimitWait govern all other 429 responses.
	RateLimitRetries int
	RateLimitWait    time.Duration

	// NetworkRetries and NetworkWait govern transport errors. The n-th retry
	// waits n*NetworkWait.
	NetworkRetries int
	NetworkWait    time.Duration

	// TimeoutRetries is the number of retries after a per-call timeout.
	TimeoutRetries int

	// MaxAttempts caps upstream calls per frame across all classes.
	MaxAttempts int
}

// DefaultPolicy returns the documented default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		CallTimeout:      DefaultCallTimeout,
		LoadingRetries:   DefaultLoadingRetries,
		LoadingWaitCap:   DefaultLoadingWaitCap,
		QuotaRetries:     DefaultQuotaRetries,
		QuotaWait:        DefaultQuotaWait,
		RateLimitRetries: DefaultRateLimitRetries,
		RateLimitWait:    DefaultRateLimitWait,
		NetworkRetries:   DefaultNetworkRetries,
		NetworkWait:      DefaultNetworkWait,
		TimeoutRetries:   DefaultTimeoutRetries,
		MaxAttempts:      DefaultMaxAttempts,
	}
}

// Validate rejects policies that could not terminate or make no sense.
func (p Policy) Validate() error {
	if p.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive, got %s", p.CallTimeout)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	budgets := map[string]int{
		"loading":    p.LoadingRetries,
		"quota":      p.QuotaRetries,
		"rate limit": p.RateLimitRetries,
		"network":    p.NetworkRetries,
		"timeout":    p.TimeoutRetries,
	}
	for name, n := range budgets {
		if n < 0 {
			return fmt.Errorf("%s retries must not be negative, got %d", name, n)
		}
	}
	waits := map[string]time.Duration{
		"loading wait cap": p.LoadingWaitCap,
		"quota wait":       p.QuotaWait,
		"rate limit wait":  p.RateLimitWait,
		"network wait":     p.NetworkWait,
	}
	for name, d := range waits {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	return nil
}

// retries returns the retry budget for a retryable class.
func (p Policy) retries(c class) int {
	switch c {
	case classLoading:
		return p.LoadingRetries
	case classQuota:
		return p.QuotaRetries
	case classRateLimit:
		return p.RateLimitRetries
	case classNetwork:
		return p.NetworkRetries
	case classTimeout:
		return p.TimeoutRetries
	default:
		return 0
	}
}

// wait returns how long to sleep before the n-th retry (1-based) of class c.
// estimate is the upstream loading estimate, or zero when absent.
func (p Policy) wait(c class, n int, estimate time.Duration) time.Duration {
	switch c {
	case classLoading:
		if estimate <= 0 || estimate > p.LoadingWaitCap {
			return p.LoadingWaitCap
		}
		return estimate
	case classQuota:
		return p.QuotaWait
	case classRateLimit:
		return p.RateLimitWait
	case classNetwork:
		return p.NetworkWait * time.Duration(n)
	default:
		return 0
	}
}

// WorstCaseFrameLatency is an upper bound on the time one frame can take:
// every allowed call hitting the timeout plus every retry wait.
func (p Policy) WorstCaseFrameLatency() time.Duration {
	calls := 1 + p.LoadingRetries + p.QuotaRetries + p.RateLimitRetries + p.NetworkRetries + p.TimeoutRetries
	if calls > p.MaxAttempts {
		calls = p.MaxAttempts
	}
	total := time.Duration(calls) * p.CallTimeout
	total += time.Duration(p.LoadingRetries) * p.LoadingWaitCap
	total += time.Duration(p.QuotaRetries) * p.QuotaWait
	total += time.Duration(p.RateLimitRetries) * p.RateLimitWait
	for n := 1; n <= p.NetworkRetries; n++ {
		total += p.NetworkWait * time.Duration(n)
	}
	return total
}

// Settings configures a Pipeline.
type Settings struct {
	FrameCount int
	FrameDelay time.Duration
	Policy     Policy
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		FrameCount: DefaultFrameCount,
		FrameDelay: DefaultFrameDelay,
		Policy:     DefaultPolicy(),
	}
}

// Validate checks the frame count and delay, then the policy.
func (s Settings) Validate() error {
	if s.FrameCount < 1 || s.FrameCount > MaxFrameCount {
		return fmt.Errorf("frame count must be between 1 and %d, got %d", MaxFrameCount, s.FrameCount)
	}
	if s.FrameDelay < 0 {
		return fmt.Errorf("frame delay must not be negative, got %s", s.FrameDelay)
	}
	return s.Policy.Validate()
}

// WorstCaseLatency bounds a whole generation: every frame at its worst plus
// the delays between frames.
func (s Settings) WorstCaseLatency() time.Duration {
	if s.FrameCount < 1 {
		return 0
	}
	return time.Duration(s.FrameCount)*s.Policy.WorstCaseFrameLatency() +
		time.Duration(s.FrameCount-1)*s.FrameDelay
}

// BestCaseLatency is the latency floor of a clean run excluding upstream time:
// only the inter-frame delays.
func (s Settings) BestCaseLatency() time.Duration {
	if s.FrameCount < 1 {
		return 0
	}
	return time.Duration(s.FrameCount-1) * s.FrameDelay
}

// CeilingWarnings describes how the settings relate to a platform request
// time limit. It returns nil when even the worst case fits.
func (s Settings) CeilingWarnings(ceiling time.Duration) []string {
	if ceiling <= 0 {
		return nil
	}
	var warnings []string
	if best := s.BestCaseLatency(); best >= ceiling {
		warnings = append(warnings, fmt.Sprintf(
			"inter-frame delays alone (%s) reach the platform ceiling %s; every request will be cut off", best, ceiling))
	}
	if worst := s.WorstCaseLatency(); worst > ceiling {
		warnings = append(warnings, fmt.Sprintf(
			"worst-case generation latency %s exceeds the platform ceiling %s; long retry waits may be cut off", worst, ceiling))
	}
	return warnings
}
