package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: 1},
		{name: "child status", err: &ExitError{Code: 3}, want: 3},
		{name: "wrapped child status", err: fmt.Errorf("backend: %w", &ExitError{Code: 42}), want: 42},
		{name: "zero status is still a failure", err: &ExitError{Code: 0}, want: 1},
		{name: "validation", err: &ValidationError{Field: "run_mode", Message: "bad"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestClassification(t *testing.T) {
	cause := errors.New("disk full")
	gen := fmt.Errorf("generate: %w", &GenerationError{Path: "/tmp/app.yaml", Message: "write app.yaml", Err: cause})

	assert.True(t, IsGeneration(gen))
	assert.False(t, IsValidation(gen))
	assert.ErrorIs(t, gen, cause)
	assert.Contains(t, gen.Error(), "/tmp/app.yaml")

	val := &ValidationError{Field: "run_mode", Message: `must be one of node, local, docker (got "k8s")`}
	assert.True(t, IsValidation(val))
	assert.Equal(t, `invalid configuration: run_mode: must be one of node, local, docker (got "k8s")`, val.Error())

	missing := &MissingBinaryError{Binary: "claude", Hint: "Install it first."}
	assert.True(t, IsMissingBinary(missing))
	assert.Equal(t, "claude not found in PATH. Install it first.", missing.Error())
}

func TestSilent(t *testing.T) {
	assert.True(t, Silent(&ExitError{Code: 2}))
	assert.False(t, Silent(&ExitError{Code: 2, Err: errors.New("exec failed")}))
	assert.False(t, Silent(errors.New("other")))
}
