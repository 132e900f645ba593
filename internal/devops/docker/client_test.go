package docker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "aura/internal/errors"
)

func TestNewCLIClientMissingDocker(t *testing.T) {
	orig := lookPath
	lookPath = func(string) (string, error) { return "", os.ErrNotExist }
	t.Cleanup(func() { lookPath = orig })

	_, err := NewCLIClient()
	require.Error(t, err)
	assert.True(t, errs.IsMissingBinary(err))
}

func TestVersionUsesDockerCLI(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "docker")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = compose ]; then echo 2.29.1; exit 0; fi\n" +
		"echo 27.1.0\n"
	require.NoError(t, os.WriteFile(fake, []byte(script), 0o755))

	orig := lookPath
	lookPath = func(string) (string, error) { return fake, nil }
	t.Cleanup(func() { lookPath = orig })

	c, err := NewCLIClient()
	require.NoError(t, err)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "27.1.0", v)

	cv, err := c.ComposeVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.29.1", cv)
}
