package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"aura/internal/devops"
	"aura/internal/devops/docker"
	"aura/internal/devops/health"
	"aura/internal/devops/services"
	"aura/internal/fsutil"
	"aura/internal/settings"
)

func newDoctorCommand(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check required env vars, backend install and service reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDoctor(cmd.Context(), timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "per-check timeout")
	return cmd
}

// endpoint is one TCP dependency probed by doctor.
type endpoint struct {
	name string
	addr string
	err  error
}

func (a *app) runDoctor(ctx context.Context, timeout time.Duration) error {
	s, err := a.loader.Load()
	if err != nil {
		return err
	}
	lc, err := a.launcherConfig()
	if err != nil {
		return err
	}
	sw := a.section()
	problems := 0
	fail := func(format string, args ...any) {
		problems++
		sw.Error(format, args...)
	}

	sw.Section("Config")
	if fsutil.Exists(a.loader.Path()) {
		sw.Success("%s", a.loader.Path())
	} else {
		sw.Warn("%s missing, using defaults (run aura configure)", a.loader.Path())
	}
	sw.Info("run_mode %s", s.RunMode)

	sw.Section("Environment")
	env := a.env
	if s.AIEnvPath != "" {
		aiEnv, err := devops.DotenvLayer(a.loader.Resolve(s.AIEnvPath), a.env)
		if err != nil {
			return err
		}
		env = devops.MergeEnv(env, aiEnv)
	}
	present := func(key string) bool {
		value, ok := devops.EnvValue(env, key)
		return ok && strings.TrimSpace(value) != ""
	}
	for _, name := range missingEnvVars(s, present) {
		fail("%s is not set", name)
	}
	if problems == 0 {
		sw.Success("required env vars present")
	}

	sw.Section("Backend")
	if bin, err := services.ResolveBackendBinary(a.backendConfig(lc, nil)); err != nil {
		fail("%v", err)
	} else {
		sw.Success("%s", bin)
	}
	if s.RunMode != settings.RunModeDocker {
		if fsutil.Exists(lc.RunScriptPath()) {
			sw.Success("run script %s", lc.RunScriptPath())
		} else {
			sw.Warn("run script %s missing, up falls back to serve", lc.RunScriptPath())
		}
	}

	sw.Section("Services")
	endpoints := dependencyEndpoints(s)
	checker := health.NewChecker(health.WithTimeout(timeout))
	g, gctx := errgroup.WithContext(ctx)
	for i := range endpoints {
		ep := &endpoints[i]
		g.Go(func() error {
			if res := checker.Check(gctx, health.TCP(ep.addr)); !res.Healthy {
				ep.err = errors.New(res.Message)
			}
			return nil
		})
	}
	_ = g.Wait()
	reachable := map[string]bool{}
	for _, ep := range endpoints {
		if ep.err != nil {
			fail("%-8s %s unreachable: %v", ep.name, ep.addr, ep.err)
			continue
		}
		reachable[ep.name] = true
		sw.Success("%-8s %s", ep.name, ep.addr)
	}
	if reachable["postgres"] {
		if err := pingPostgres(ctx, s.DatabaseURL, timeout); err != nil {
			fail("postgres ping: %v", err)
		} else {
			sw.Success("postgres accepts connections")
		}
	}

	if s.RunMode == settings.RunModeDocker {
		sw.Section("Docker")
		if err := checkDocker(ctx, timeout); err != nil {
			fail("%v", err)
		} else {
			sw.Success("docker available")
		}
	}

	if problems > 0 {
		return fmt.Errorf("doctor found %d problem(s)", problems)
	}
	sw.Success("All checks passed")
	return nil
}

// missingEnvVars lists required variables that are neither exported nor
// provided by aura.yaml.
func missingEnvVars(s settings.Settings, present func(string) bool) []string {
	fromSettings := map[string]string{
		"DASHSCOPE_API_KEY":  s.APIKey(),
		"ANTHROPIC_API_KEY":  s.AnthropicAPIKey,
		"ANTHROPIC_BASE_URL": s.AnthropicBaseURL,
	}
	var missing []string
	for _, name := range s.RequiredEnvVars {
		name = strings.TrimSpace(name)
		if name == "" || strings.TrimSpace(fromSettings[name]) != "" || present(name) {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

func dependencyEndpoints(s settings.Settings) []endpoint {
	var out []endpoint
	if addr := urlAddress(s.DatabaseURL, "5432"); addr != "" {
		out = append(out, endpoint{name: "postgres", addr: addr})
	}
	if addr := urlAddress(s.RedisURL, "6379"); addr != "" {
		out = append(out, endpoint{name: "redis", addr: addr})
	}
	if addr := hostAddress(s.MinioEndpoint, "9000"); addr != "" {
		out = append(out, endpoint{name: "minio", addr: addr})
	}
	return out
}

// urlAddress extracts host:port from a connection URL.
func urlAddress(raw, defaultPort string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// hostAddress accepts either host[:port] or a URL.
func hostAddress(raw, defaultPort string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		return urlAddress(raw, defaultPort)
	}
	if host, port, err := net.SplitHostPort(raw); err == nil {
		return net.JoinHostPort(host, port)
	}
	return net.JoinHostPort(raw, defaultPort)
}

// postgresURL rewrites driver-qualified schemes such as postgresql+asyncpg
// to the plain scheme pgx understands.
func postgresURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	scheme, _, _ := strings.Cut(u.Scheme, "+")
	switch scheme {
	case "postgres", "postgresql":
		u.Scheme = "postgres"
	default:
		return "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
	return u.String(), nil
}

func pingPostgres(ctx context.Context, databaseURL string, timeout time.Duration) error {
	dsn, err := postgresURL(databaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	return conn.Ping(ctx)
}

func checkDocker(ctx context.Context, timeout time.Duration) error {
	client, err := docker.NewCLIClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := client.Version(ctx); err != nil {
		return err
	}
	if _, err := client.ComposeVersion(ctx); err != nil {
		return fmt.Errorf("docker compose: %w", err)
	}
	return nil
}
