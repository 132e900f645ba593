package docker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	errs "aura/internal/errors"
)

var lookPath = exec.LookPath

// CLIClient inspects the local Docker installation through the docker CLI.
type CLIClient struct {
	dockerBin string
}

// NewCLIClient creates a CLI-based Docker client. It fails with a
// MissingBinaryError when docker is not installed.
func NewCLIClient() (*CLIClient, error) {
	bin, err := lookPath("docker")
	if err != nil {
		return nil, &errs.MissingBinaryError{
			Binary: "docker",
			Hint:   "Install Docker to use run_mode: docker.",
		}
	}
	return &CLIClient{dockerBin: bin}, nil
}

func (c *CLIClient) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.dockerBin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Version returns the Docker server version, which also proves the daemon
// is reachable.
func (c *CLIClient) Version(ctx context.Context) (string, error) {
	return c.run(ctx, "version", "--format", "{{.Server.Version}}")
}

// ComposeVersion returns the docker compose plugin version.
func (c *CLIClient) ComposeVersion(ctx context.Context) (string, error) {
	return c.run(ctx, "compose", "version", "--short")
}
