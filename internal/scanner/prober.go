package scanner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/metrics"
)

// ProberConfig controls probe requests and retry behavior.
type ProberConfig struct {
	// BaseURL is the upstream platform root, e.g. https://host. The probe
	// target is {BaseURL}/videos/{id}/download.
	BaseURL string
	// TenantSegment identifies the target municipality in redirect targets.
	TenantSegment string
	UserAgent     string
	Timeout       time.Duration
	Retries       int
	RetryBackoff  time.Duration
}

func (c *ProberConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
}

// HTTPProber issues HEAD probes against the shared video namespace.
type HTTPProber struct {
	cfg    ProberConfig
	client *http.Client
	sleep  SleepFunc
	logger *zap.Logger
}

// NewHTTPProber builds a prober. The client never follows redirects: the
// redirect target itself is the ownership signal.
func NewHTTPProber(cfg ProberConfig, sleep SleepFunc, logger *zap.Logger) (*HTTPProber, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}
	if strings.TrimSpace(cfg.TenantSegment) == "" {
		return nil, fmt.Errorf("tenant segment is required")
	}
	cfg.applyDefaults()
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProber{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		sleep:  sleep,
		logger: logger,
	}, nil
}

// Probe issues a single ownership probe with bounded retries. A probe that
// still fails after the retry budget is TimedOut, which must never be read
// as proof of absence.
func (p *HTTPProber) Probe(ctx context.Context, id int64) ProbeResult {
	start := time.Now()
	result := p.probeWithRetries(ctx, id)
	metrics.ObserveProbe(result.Outcome(), time.Since(start))
	return result
}

func (p *HTTPProber) probeWithRetries(ctx context.Context, id int64) ProbeResult {
	for attempt := 0; ; attempt++ {
		result, err := p.probeOnce(ctx, id)
		if err == nil {
			return result
		}
		if attempt >= p.cfg.Retries || ctx.Err() != nil {
			p.logger.Debug("probe exhausted retries",
				zap.Int64("id", id),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return ProbeResult{ID: id, TimedOut: true}
		}
		p.sleep(ctx, p.cfg.RetryBackoff)
	}
}

func (p *HTTPProber) probeOnce(ctx context.Context, id int64) (ProbeResult, error) {
	url := fmt.Sprintf("%s/videos/%d/download", strings.TrimRight(p.cfg.BaseURL, "/"), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("build probe request: %w", err)
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %d: %w", id, err)
	}
	defer resp.Body.Close() //nolint:errcheck // HEAD bodies are empty

	return p.classify(id, resp), nil
}

func (p *HTTPProber) classify(id int64, resp *http.Response) ProbeResult {
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		return ProbeResult{
			ID:     id,
			Exists: true,
			Owned:  location != "" && strings.Contains(location, p.cfg.TenantSegment),
		}
	case resp.StatusCode == http.StatusNotFound:
		return ProbeResult{ID: id}
	default:
		// Ambiguous status: treat as existing but never claim ownership.
		return ProbeResult{ID: id, Exists: true}
	}
}
