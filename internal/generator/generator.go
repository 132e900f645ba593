// Package generator derives the backend's configuration directory from the
// unified settings and the abilities overlay.
package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aura/internal/abilities"
	auraerrors "aura/internal/errors"
	"aura/internal/fsutil"
	"aura/internal/logging"
	"aura/internal/settings"
)

const (
	// DefaultOutputDir is the generated-output location relative to the root.
	DefaultOutputDir = ".aura/generated_config"
	// AppConfigFile holds the settings projection.
	AppConfigFile = "app.yaml"
	// ToolsFile holds the merged tool list and provider maps.
	ToolsFile = "models.yaml"
	// EnvConfigDir points the backend at the generated directory.
	EnvConfigDir = "CONFIG_DIR"
)

// Generator writes app.yaml and models.yaml for one installation.
type Generator struct {
	root      string
	configDir string
	outputDir string
	logger    logging.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithOutputDir overrides the generated-output location. Relative paths are
// resolved against the installation root.
func WithOutputDir(dir string) Option {
	return func(g *Generator) {
		if strings.TrimSpace(dir) != "" {
			g.outputDir = dir
		}
	}
}

// WithLogger sets the generator's logger.
func WithLogger(logger logging.Logger) Option {
	return func(g *Generator) {
		g.logger = logging.OrNop(logger)
	}
}

// New builds a Generator. configDir is where aura.yaml and the overlay live.
func New(root, configDir string, opts ...Option) *Generator {
	g := &Generator{
		root:      root,
		configDir: configDir,
		outputDir: DefaultOutputDir,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if !filepath.IsAbs(g.outputDir) {
		g.outputDir = filepath.Join(g.root, g.outputDir)
	}
	return g
}

// OutputDir returns the generated-output location.
func (g *Generator) OutputDir() string { return g.outputDir }

// AppConfigPath returns the generated app.yaml path.
func (g *Generator) AppConfigPath() string { return filepath.Join(g.outputDir, AppConfigFile) }

// ToolsPath returns the generated models.yaml path.
func (g *Generator) ToolsPath() string { return filepath.Join(g.outputDir, ToolsFile) }

// OverlayPath returns the abilities overlay location for s.
func (g *Generator) OverlayPath(s settings.Settings) string {
	return abilities.ResolveOverlayPath(g.root, g.configDir, s.AbilitiesFile)
}

// Rendered is the content Generate would write.
type Rendered struct {
	AppConfig     []byte
	Tools         []byte
	ToolIDs       []string
	Merged        []abilities.Tool
	AbilitiesPath string
	Overlay       abilities.EnsureStatus
	BaseSource    string
}

// Result describes a completed generation.
type Result struct {
	Dir           string
	AppConfigPath string
	ToolsPath     string
	AbilitiesPath string
	Overlay       abilities.EnsureStatus
	ToolIDs       []string
}

// Env returns the variables that point the backend at the generated files.
func (r *Result) Env() []string {
	return []string{
		EnvConfigDir + "=" + r.Dir,
		abilities.EnvAbilitiesFile + "=" + r.AbilitiesPath,
	}
}

// Render ensures the abilities overlay and computes both generated documents
// without writing them. backendRoot may be empty when no backend checkout is
// available.
func (g *Generator) Render(s settings.Settings, backendRoot string) (*Rendered, error) {
	overlayPath := g.OverlayPath(s)
	example := filepath.Join(g.configDir, abilities.ExampleFileName)
	status, err := abilities.EnsureOverlay(overlayPath, example, g.logger)
	if err != nil {
		return nil, err
	}

	appData, err := s.Project(g.outputDir, overlayPath).Marshal()
	if err != nil {
		return nil, &auraerrors.GenerationError{Path: g.AppConfigPath(), Message: "encode app config", Err: err}
	}

	baseData, baseSource, err := readBaseTools(backendRoot)
	if err != nil {
		return nil, err
	}

	overlay, err := abilities.LoadOverlay(overlayPath)
	if err != nil {
		return nil, &auraerrors.GenerationError{Path: overlayPath, Message: "load abilities overlay", Err: err}
	}
	for _, skipped := range overlay.Skipped {
		g.logger.Warn("Skipping abilities entry in %s: %v", overlayPath, skipped)
	}

	toolsData, merged, err := mergeToolsDocument(baseData, overlay.Tools, func(err error) {
		g.logger.Warn("Skipping backend tool in %s: %v", baseSource, err)
	})
	if err != nil {
		return nil, &auraerrors.GenerationError{Path: baseSource, Message: "merge tool list", Err: err}
	}

	return &Rendered{
		AppConfig:     appData,
		Tools:         toolsData,
		ToolIDs:       abilities.IDs(merged),
		Merged:        merged,
		AbilitiesPath: overlayPath,
		Overlay:       status,
		BaseSource:    baseSource,
	}, nil
}

// Generate renders and writes app.yaml and models.yaml, replacing any
// previous output.
func (g *Generator) Generate(s settings.Settings, backendRoot string) (*Result, error) {
	rendered, err := g.Render(s, backendRoot)
	if err != nil {
		return nil, err
	}
	return g.Write(rendered)
}

// Write persists a Rendered set into the output directory.
func (g *Generator) Write(rendered *Rendered) (*Result, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, &auraerrors.GenerationError{Path: g.outputDir, Message: "create output directory", Err: err}
	}
	if err := fsutil.WriteFileAtomic(g.AppConfigPath(), rendered.AppConfig, 0o600); err != nil {
		return nil, &auraerrors.GenerationError{Path: g.AppConfigPath(), Message: "write app config", Err: err}
	}
	if err := fsutil.WriteFileAtomic(g.ToolsPath(), rendered.Tools, 0o644); err != nil {
		return nil, &auraerrors.GenerationError{Path: g.ToolsPath(), Message: "write tool list", Err: err}
	}

	g.logger.Info("Generated backend config in %s (%d tools)", g.outputDir, len(rendered.ToolIDs))
	return &Result{
		Dir:           g.outputDir,
		AppConfigPath: g.AppConfigPath(),
		ToolsPath:     g.ToolsPath(),
		AbilitiesPath: rendered.AbilitiesPath,
		Overlay:       rendered.Overlay,
		ToolIDs:       rendered.ToolIDs,
	}, nil
}

// Previous returns the currently generated files, empty when absent.
func (g *Generator) Previous() (appConfig, tools []byte, err error) {
	appConfig, err = readOptional(g.AppConfigPath())
	if err != nil {
		return nil, nil, err
	}
	tools, err = readOptional(g.ToolsPath())
	if err != nil {
		return nil, nil, err
	}
	return appConfig, tools, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
