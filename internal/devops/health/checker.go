package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Result captures the outcome of a health probe.
type Result struct {
	Healthy bool
	Message string
	Latency time.Duration
}

// Kind selects how a probe reaches its target.
type Kind int

const (
	KindHTTP Kind = iota
	KindTCP
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindTCP:
		return "tcp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Probe describes a single endpoint check.
type Probe struct {
	Kind    Kind
	Target  string // URL for HTTP, host:port for TCP
	Timeout time.Duration
}

// HTTP returns a probe for url.
func HTTP(url string) Probe { return Probe{Kind: KindHTTP, Target: url} }

// TCP returns a probe for a host:port address.
func TCP(addr string) Probe { return Probe{Kind: KindTCP, Target: addr} }

// Checker runs probes.
type Checker struct {
	client   *http.Client
	timeout  time.Duration
	interval time.Duration
}

// Option customizes a Checker.
type Option func(*Checker)

// WithInterval sets the delay between attempts in WaitHealthy.
func WithInterval(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTimeout sets the default per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChecker creates a checker with a keep-alive-free HTTP client.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client: &http.Client{
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		timeout:  3 * time.Second,
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check performs one probe.
func (c *Checker) Check(ctx context.Context, probe Probe) Result {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var healthy bool
	var message string
	switch probe.Kind {
	case KindHTTP:
		healthy, message = c.checkHTTP(ctx, probe.Target)
	case KindTCP:
		healthy, message = checkTCP(ctx, probe.Target)
	default:
		message = fmt.Sprintf("unsupported probe %s", probe.Kind)
	}
	return Result{Healthy: healthy, Message: message, Latency: time.Since(start)}
}

// WaitHealthy polls probe until it succeeds, ctx ends or timeout elapses.
func (c *Checker) WaitHealthy(ctx context.Context, probe Probe, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var last Result
	for {
		last = c.Check(ctx, probe)
		if last.Healthy {
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.interval):
		}
	}
	return fmt.Errorf("%s not healthy within %s: %s", probe.Target, timeout, last.Message)
}

func (c *Checker) checkHTTP(ctx context.Context, url string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Sprintf("invalid URL: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("request failed: %v", err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 400
	return ok, fmt.Sprintf("HTTP %d", resp.StatusCode)
}

func checkTCP(ctx context.Context, addr string) (bool, string) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, fmt.Sprintf("connect failed: %v", err)
	}
	conn.Close()
	return true, "connected"
}
