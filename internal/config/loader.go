package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	auraerrors "aura/internal/errors"
	"aura/internal/logging"
	"aura/internal/settings"
)

const (
	// EnvHome overrides the installation root.
	EnvHome = "AURA_HOME"
	// EnvConfigDir overrides the directory holding aura.yaml.
	EnvConfigDir = "AURA_CONFIG_DIR"
	// FileName is the unified configuration file name.
	FileName = "aura.yaml"
)

var executablePath = os.Executable

// Option customizes Loader construction.
type Option func(*loadOptions)

type loadOptions struct {
	root      string
	configDir string
	envLookup EnvLookup
	readFile  func(string) ([]byte, error)
	logger    logging.Logger
}

// WithRoot pins the installation root instead of resolving it.
func WithRoot(root string) Option {
	return func(o *loadOptions) {
		o.root = root
	}
}

// WithConfigDir overrides the directory searched for aura.yaml.
func WithConfigDir(dir string) Option {
	return func(o *loadOptions) {
		o.configDir = dir
	}
}

// WithEnv injects the environment used for overrides and substitution.
func WithEnv(lookup EnvLookup) Option {
	return func(o *loadOptions) {
		o.envLookup = lookup
	}
}

// WithFileReader replaces os.ReadFile.
func WithFileReader(reader func(string) ([]byte, error)) Option {
	return func(o *loadOptions) {
		o.readFile = reader
	}
}

// WithLogger sets the loader's diagnostic logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// Loader reads the unified configuration once per process and caches the
// result until Invalidate is called. It is the explicit settings context
// handed to every consumer in an invocation.
type Loader struct {
	opts loadOptions

	mu     sync.Mutex
	loaded bool
	cached settings.Settings
	raw    map[string]any
}

// NewLoader builds an unloaded Loader.
func NewLoader(opts ...Option) *Loader {
	options := loadOptions{
		envLookup: DefaultEnvLookupWithAliases(),
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.envLookup == nil {
		options.envLookup = DefaultEnvLookup
	}
	if options.readFile == nil {
		options.readFile = os.ReadFile
	}
	options.logger = logging.OrNop(options.logger)
	if strings.TrimSpace(options.root) == "" {
		options.root = ResolveRoot(options.envLookup)
	}
	return &Loader{opts: options}
}

// ResolveRoot locates the installation root: AURA_HOME when set, otherwise
// the directory holding the executable (its parent when that is bin/).
func ResolveRoot(lookup EnvLookup) string {
	if lookup == nil {
		lookup = DefaultEnvLookup
	}
	if home, ok := lookup(EnvHome); ok && strings.TrimSpace(home) != "" {
		return absPath(strings.TrimSpace(home))
	}

	exe, err := executablePath()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	if filepath.Base(dir) == "bin" {
		dir = filepath.Dir(dir)
	}
	return dir
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Root returns the installation root.
func (l *Loader) Root() string {
	return l.opts.root
}

// Env returns the lookup the loader substitutes with.
func (l *Loader) Env() EnvLookup {
	return l.opts.envLookup
}

// Resolve joins a relative path onto the installation root.
func (l *Loader) Resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.opts.root, path)
}

// ConfigDir returns the directory searched for aura.yaml.
func (l *Loader) ConfigDir() string {
	if dir := strings.TrimSpace(l.opts.configDir); dir != "" {
		return l.Resolve(dir)
	}
	if dir, ok := l.opts.envLookup(EnvConfigDir); ok && strings.TrimSpace(dir) != "" {
		return l.Resolve(dir)
	}
	return filepath.Join(l.opts.root, "config")
}

// Path returns the unified configuration file path.
func (l *Loader) Path() string {
	return filepath.Join(l.ConfigDir(), FileName)
}

// Load returns the cached Settings, reading the unified file on first use.
// A missing or empty file yields defaults.
func (l *Loader) Load() (settings.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.cached, nil
	}

	raw, err := l.readRaw()
	if err != nil {
		return settings.Settings{}, err
	}
	s, err := Decode(raw)
	if err != nil {
		return settings.Settings{}, err
	}

	l.cached = s
	l.raw = raw
	l.loaded = true
	return s, nil
}

// Raw returns the substituted document backing the cached Settings.
// Sections the Settings model ignores (such as launcher:) are read from here.
func (l *Loader) Raw() (map[string]any, error) {
	if _, err := l.Load(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.raw, nil
}

// Invalidate drops the cached Settings so the next Load rereads the file.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.loaded = false
	l.cached = settings.Settings{}
	l.raw = nil
	l.mu.Unlock()
}

func (l *Loader) readRaw() (map[string]any, error) {
	path := l.Path()
	data, err := l.opts.readFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.opts.logger.Debug("No unified config at %s, using defaults", path)
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var parsed any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, &auraerrors.ValidationError{Message: fmt.Sprintf("parse %s", path), Err: err}
	}
	if parsed == nil {
		return map[string]any{}, nil
	}

	expanded, ok := ExpandTree(parsed, l.opts.envLookup).(map[string]any)
	if !ok {
		return nil, &auraerrors.ValidationError{
			Message: fmt.Sprintf("%s must contain a mapping at the top level", path),
		}
	}
	return expanded, nil
}

// Decode layers a raw document over settings.Defaults. Values are coerced to
// the field types ("8080" becomes 8080) and unrecognised keys are ignored.
func Decode(raw map[string]any) (settings.Settings, error) {
	s := settings.Defaults()
	if v, ok := raw["required_env_vars"]; ok && v != nil {
		// An explicit list replaces the default rather than overlaying it.
		s.RequiredEnvVars = nil
	}
	if len(raw) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "yaml",
			WeaklyTypedInput: true,
			Result:           &s,
		})
		if err != nil {
			return settings.Settings{}, fmt.Errorf("build settings decoder: %w", err)
		}
		if err := decoder.Decode(raw); err != nil {
			return settings.Settings{}, &auraerrors.ValidationError{Message: "decode settings", Err: err}
		}
	}
	if err := s.Validate(); err != nil {
		return settings.Settings{}, err
	}
	return s, nil
}
