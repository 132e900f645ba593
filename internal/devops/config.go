package devops

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SectionKey is the aura.yaml section holding launcher settings.
const SectionKey = "launcher"

// LauncherConfig locates the components the launcher delegates to.
type LauncherConfig struct {
	// Backend
	BackendRoot string        `env:"AURA_BACKEND_ROOT" yaml:"backend_root" default:"../Agent-Backend"`
	BackendBin  string        `env:"AURA_BACKEND_BIN" yaml:"backend_bin"`
	RunScript   string        `yaml:"run_script" default:"run"`
	HealthPath  string        `yaml:"health_path" default:"/health"`
	StopTimeout time.Duration `env:"AURA_STOP_TIMEOUT" yaml:"stop_timeout" default:"5s"`
	WaitHealthy time.Duration `yaml:"wait_healthy" default:"60s"`

	// Web
	WebStaticDir string `env:"AURA_WEB_UI_DIR" yaml:"web_static_dir" default:"../Web-Service/static"`

	// Assistant CLI
	AssistantBin string `env:"AURA_ASSISTANT_BIN" yaml:"assistant_bin" default:"claude"`

	// Directories
	ProjectDir   string `yaml:"-"` // installation root, set at runtime
	GeneratedDir string `yaml:"generated_dir" default:".aura/generated_config"`
	PIDDir       string `env:"AURA_PID_DIR" yaml:"pid_dir" default:".aura/pids"`
}

// LoadLauncherConfig builds the launcher config with the priority:
// code defaults -> launcher section -> environment.
// section is the decoded launcher: mapping and may be nil.
func LoadLauncherConfig(root string, section any, lookup func(string) (string, bool)) (*LauncherConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := &LauncherConfig{}
	applyDefaults(cfg)

	if section != nil {
		data, err := yaml.Marshal(section)
		if err != nil {
			return nil, fmt.Errorf("re-marshal %s section: %w", SectionKey, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s section: %w", SectionKey, err)
		}
	}

	applyEnv(cfg, lookup)

	cfg.ProjectDir = root
	if cfg.ProjectDir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cfg.ProjectDir = dir
	}

	cfg.BackendRoot = cfg.resolvePath(cfg.BackendRoot)
	cfg.WebStaticDir = cfg.resolvePath(cfg.WebStaticDir)
	cfg.GeneratedDir = cfg.resolvePath(cfg.GeneratedDir)
	cfg.PIDDir = cfg.resolvePath(cfg.PIDDir)
	if strings.ContainsRune(cfg.BackendBin, filepath.Separator) && !filepath.IsAbs(cfg.BackendBin) {
		cfg.BackendBin = filepath.Join(cfg.BackendRoot, cfg.BackendBin)
	}

	return cfg, nil
}

func (c *LauncherConfig) resolvePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(c.ProjectDir, p))
}

// RunScriptPath returns the backend's run script.
func (c *LauncherConfig) RunScriptPath() string {
	if filepath.IsAbs(c.RunScript) {
		return c.RunScript
	}
	return filepath.Join(c.BackendRoot, c.RunScript)
}

func applyDefaults(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)

		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			applyDefaults(fv.Addr().Interface())
			continue
		}

		tag := field.Tag.Get("default")
		if tag == "" {
			continue
		}

		if fv.IsZero() {
			setFieldFromString(fv, field.Type, tag)
		}
	}
}

func applyEnv(v any, lookup func(string) (string, bool)) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)

		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			applyEnv(fv.Addr().Interface(), lookup)
			continue
		}

		envKey := field.Tag.Get("env")
		if envKey == "" {
			continue
		}

		envVal, ok := lookup(envKey)
		if !ok || strings.TrimSpace(envVal) == "" {
			continue
		}

		setFieldFromString(fv, field.Type, envVal)
	}
}

func setFieldFromString(fv reflect.Value, ft reflect.Type, val string) {
	switch ft.Kind() {
	case reflect.String:
		fv.SetString(val)
	case reflect.Int:
		if n, err := strconv.Atoi(val); err == nil {
			fv.SetInt(int64(n))
		}
	case reflect.Bool:
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			fv.SetBool(true)
		case "false", "0", "no":
			fv.SetBool(false)
		}
	case reflect.Int64:
		if ft == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(val); err == nil {
				fv.SetInt(int64(d))
			}
		} else if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			fv.SetInt(n)
		}
	}
}
