package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"aura/internal/config"
	"aura/internal/devops"
	"aura/internal/devops/health"
	devlog "aura/internal/devops/log"
	"aura/internal/devops/process"
	"aura/internal/devops/services"
	"aura/internal/fsutil"
	"aura/internal/generator"
	"aura/internal/logging"
	"aura/internal/settings"
)

const (
	keyConfigDir = "config_dir"
	keyLogLevel  = "log_level"

	envWebUIDir = "WEB_UI_DIR"
)

// app carries the state shared by every command of one invocation.
type app struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	environ []string
	v       *viper.Viper

	root   string
	env    []string // environ plus the root .env file
	loader *config.Loader
	sw     *devlog.SectionWriter
	logger logging.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer, environ []string) *app {
	v := viper.New()
	_ = v.BindEnv(keyConfigDir, config.EnvConfigDir)
	_ = v.BindEnv(keyLogLevel, "AURA_LOG_LEVEL")
	return &app{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		environ: environ,
		v:       v,
	}
}

// init resolves the installation root, the base environment and the loader.
func (a *app) init() error {
	logging.Configure(logging.Config{Level: a.v.GetString(keyLogLevel), Output: a.stderr})
	a.logger = logging.NewComponentLogger("cli")

	base := func(key string) (string, bool) { return devops.EnvValue(a.environ, key) }
	a.root = config.ResolveRoot(base)

	dotenv, err := devops.DotenvLayer(filepath.Join(a.root, ".env"), a.environ)
	if err != nil {
		return err
	}
	a.env = devops.MergeEnv(a.environ, dotenv)

	a.loader = config.NewLoader(
		config.WithRoot(a.root),
		config.WithConfigDir(a.v.GetString(keyConfigDir)),
		config.WithEnv(config.AliasEnvLookup(a.lookup, config.DefaultEnvAliases())),
		config.WithLogger(logging.NewComponentLogger("config")),
	)
	return nil
}

func (a *app) lookup(key string) (string, bool) {
	value, ok := devops.EnvValue(a.env, key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (a *app) section() *devlog.SectionWriter {
	if a.sw == nil {
		colors := false
		if f, ok := a.stdout.(*os.File); ok {
			colors = devlog.ShouldColor(f)
		}
		a.sw = devlog.NewSectionWriter(a.stdout, colors).WithErrorWriter(a.stderr)
	}
	return a.sw
}

func (a *app) colorEnabled() bool { return a.section().ColorEnabled() }

func (a *app) launcherConfig() (*devops.LauncherConfig, error) {
	raw, err := a.loader.Raw()
	if err != nil {
		return nil, err
	}
	return devops.LoadLauncherConfig(a.root, raw[devops.SectionKey], a.lookup)
}

func (a *app) generator(lc *devops.LauncherConfig) *generator.Generator {
	return generator.New(a.root, a.loader.ConfigDir(),
		generator.WithOutputDir(lc.GeneratedDir),
		generator.WithLogger(logging.NewComponentLogger("generator")),
	)
}

// launch is everything a delegating command needs after generation.
type launch struct {
	settings settings.Settings
	launcher *devops.LauncherConfig
	result   *generator.Result
	env      []string
}

// prepare loads settings, regenerates the backend config and builds the
// child environment.
func (a *app) prepare() (*launch, error) {
	s, err := a.loader.Load()
	if err != nil {
		return nil, err
	}
	lc, err := a.launcherConfig()
	if err != nil {
		return nil, err
	}
	res, err := a.generator(lc).Generate(s, lc.BackendRoot)
	if err != nil {
		return nil, err
	}
	env, err := a.childEnv(s, lc, res)
	if err != nil {
		return nil, err
	}
	return &launch{settings: s, launcher: lc, result: res, env: env}, nil
}

func (a *app) childEnv(s settings.Settings, lc *devops.LauncherConfig, res *generator.Result) ([]string, error) {
	layers := [][]string{a.env}
	if s.AIEnvPath != "" {
		aiEnv, err := devops.DotenvLayer(a.loader.Resolve(s.AIEnvPath), a.env)
		if err != nil {
			return nil, err
		}
		layers = append(layers, aiEnv)
	}
	layers = append(layers, res.Env())
	if fsutil.DirExists(lc.WebStaticDir) {
		layers = append(layers, []string{envWebUIDir + "=" + lc.WebStaticDir})
	}
	return devops.MergeEnv(layers...), nil
}

func (a *app) processManager(lc *devops.LauncherConfig) *process.Manager {
	return process.NewManager(lc.PIDDir, lc.StopTimeout)
}

func (a *app) backendConfig(lc *devops.LauncherConfig, env []string) services.BackendConfig {
	return services.BackendConfig{
		Root:   lc.BackendRoot,
		Bin:    lc.BackendBin,
		Env:    env,
		Stdout: a.stdout,
		Stderr: a.stderr,
	}
}

func healthURL(s settings.Settings, lc *devops.LauncherConfig) string {
	path := lc.HealthPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://localhost:" + strconv.Itoa(s.Port) + path
}

// modeService picks the service that implements run_mode.
func (a *app) modeService(l *launch, dev bool) devops.Service {
	pm := a.processManager(l.launcher)
	hc := health.NewChecker()
	backend := a.backendConfig(l.launcher, l.env)
	url := healthURL(l.settings, l.launcher)

	if l.settings.RunMode == settings.RunModeDocker {
		return services.NewCompose(pm, hc, a.section(), services.ComposeConfig{
			HealthURL:   url,
			WaitHealthy: l.launcher.WaitHealthy,
			Backend:     backend,
		})
	}
	return services.NewRunScript(pm, hc, a.section(), services.RunScriptConfig{
		Script:    l.launcher.RunScriptPath(),
		Mode:      l.settings.RunMode.String(),
		Dev:       dev || l.settings.Dev,
		Flags:     runFlags(l.settings),
		HealthURL: url,
		Backend:   backend,
	})
}

func runFlags(s settings.Settings) map[string]bool {
	return map[string]bool{
		"SKIP_DB_WAIT":       s.SkipDBWait,
		"NO_DB_PASSWORD":     s.NoDBPassword,
		"USE_LOCAL_POSTGRES": s.UseLocalPostgres,
	}
}

// stripSeparators drops "--" tokens from pass-through arguments.
func stripSeparators(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg != "--" {
			out = append(out, arg)
		}
	}
	return out
}

func describeOverlay(path string, status fmt.Stringer) string {
	return fmt.Sprintf("%s (%s)", path, status)
}
