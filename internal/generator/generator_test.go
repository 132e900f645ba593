package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"aura/internal/abilities"
	"aura/internal/settings"
)

type fixture struct {
	root      string
	configDir string
	backend   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		root:      root,
		configDir: filepath.Join(root, "config"),
		backend:   filepath.Join(root, "backend"),
	}
	require.NoError(t, os.MkdirAll(f.configDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(f.backend, "config"), 0o755))
	return f
}

func (f fixture) write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func readYAML(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	return doc
}

func toolsByID(t *testing.T, doc map[string]any) map[string]map[string]any {
	t.Helper()
	list, ok := doc["local_tools"].([]any)
	require.True(t, ok, "local_tools must be a list")
	out := make(map[string]map[string]any, len(list))
	for _, item := range list {
		entry := item.(map[string]any)
		out[entry["id"].(string)] = entry
	}
	return out
}

func TestGenerateWithoutBackendWritesMinimalStructure(t *testing.T) {
	f := newFixture(t)
	g := New(f.root, f.configDir)

	res, err := g.Generate(settings.Defaults(), "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.root, ".aura", "generated_config"), res.Dir)
	assert.Equal(t, abilities.OverlayCreatedDefault, res.Overlay)
	assert.FileExists(t, filepath.Join(f.configDir, abilities.OverlayFileName))

	app := readYAML(t, res.AppConfigPath)
	assert.Equal(t, res.Dir, app["config_dir"])
	assert.Equal(t, res.AbilitiesPath, app["abilities_file"])
	assert.Equal(t, "node", app["run_mode"])
	assert.Equal(t, 8000, app["port"])

	models := readYAML(t, res.ToolsPath)
	for _, key := range placeholderKeys {
		assert.Contains(t, models, key)
	}
	tools := toolsByID(t, models)
	assert.Contains(t, tools, "echo")
	assert.Contains(t, tools, "claude_loop")

	assert.Equal(t, []string{
		"CONFIG_DIR=" + res.Dir,
		"AURA_ABILITIES_FILE=" + filepath.Join(f.configDir, abilities.OverlayFileName),
	}, res.Env())
}

func TestGenerateOverlayWinsOverBackendTools(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.backend, "config", "models.yaml"), `# backend tools
chat_providers:
  qwen:
    model: qwen-max
local_tools:
  - id: cursor
    name: Cursor
    command: ["agent", "-p", "{prompt}"]
  - id: grep
    name: Grep
    command: ["grep", "-r", "{message}"]
    timeout: 30
  - name: broken entry without id
`)
	f.write(t, filepath.Join(f.configDir, abilities.OverlayFileName), `local_tools:
  - id: cursor
    name: Cursor
    command: ["agent", "--yolo", "-p", "{prompt}"]
  - id: echo
    name: Echo
    command: ["echo", "{message}"]
`)

	g := New(f.root, f.configDir)
	res, err := g.Generate(settings.Defaults(), f.backend)
	require.NoError(t, err)
	assert.Equal(t, abilities.OverlayKept, res.Overlay)
	assert.Equal(t, []string{"cursor", "grep", "echo"}, res.ToolIDs)

	models := readYAML(t, res.ToolsPath)
	tools := toolsByID(t, models)
	assert.Equal(t, []any{"agent", "--yolo", "-p", "{prompt}"}, tools["cursor"]["command"])
	assert.Equal(t, []any{"grep", "-r", "{message}"}, tools["grep"]["command"])
	assert.Equal(t, 30, tools["grep"]["timeout"])

	providers := models["chat_providers"].(map[string]any)
	assert.Contains(t, providers, "qwen", "non-tool keys of the backend file are preserved")
	assert.Contains(t, models, "embedding_providers")

	data, err := os.ReadFile(res.ToolsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# backend tools")
}

func TestGenerateKeepsToolsWithoutName(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.backend, "config", "models.yaml"), `local_tools:
  - id: grep
    command: [grep, "{prompt}"]
    timeout: 5
`)
	f.write(t, filepath.Join(f.configDir, abilities.OverlayFileName), `local_tools:
  - id: mine
    command: [x]
`)

	res, err := New(f.root, f.configDir).Generate(settings.Defaults(), f.backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"grep", "mine"}, res.ToolIDs)

	rendered, err := New(f.root, f.configDir).Render(settings.Defaults(), f.backend)
	require.NoError(t, err)
	require.Len(t, rendered.Merged, 2)
	assert.Equal(t, "grep", rendered.Merged[0].DisplayName())

	tools := toolsByID(t, readYAML(t, res.ToolsPath))
	assert.Equal(t, map[string]any{"id": "grep", "command": []any{"grep", "{prompt}"}, "timeout": 5}, tools["grep"])
	assert.Equal(t, map[string]any{"id": "mine", "command": []any{"x"}}, tools["mine"])
}

func TestGenerateFallsBackToExampleToolList(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.backend, "config", "models.yaml.example"), "local_tools:\n  - id: sample\n    command: [sample]\n")

	res, err := New(f.root, f.configDir).Generate(settings.Defaults(), f.backend)
	require.NoError(t, err)
	assert.Contains(t, res.ToolIDs, "sample")
	assert.Contains(t, res.ToolIDs, "echo")
}

func TestGenerateIsDeterministic(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.backend, "config", "models.yaml"), "local_tools:\n  - id: a\n    command: [a]\n")
	s := settings.Defaults()
	s.OSSEndpoint = "oss-cn-hangzhou.aliyuncs.com"
	s.OSSBucket = "b"
	g := New(f.root, f.configDir)

	first, err := g.Generate(s, f.backend)
	require.NoError(t, err)
	firstTools, err := os.ReadFile(first.ToolsPath)
	require.NoError(t, err)
	firstApp, err := os.ReadFile(first.AppConfigPath)
	require.NoError(t, err)

	second, err := g.Generate(s, f.backend)
	require.NoError(t, err)
	secondTools, err := os.ReadFile(second.ToolsPath)
	require.NoError(t, err)
	secondApp, err := os.ReadFile(second.AppConfigPath)
	require.NoError(t, err)

	assert.Equal(t, string(firstTools), string(secondTools))
	assert.Equal(t, string(firstApp), string(secondApp))
	assert.Equal(t, "https://oss-cn-hangzhou.aliyuncs.com", readYAML(t, second.AppConfigPath)["oss_endpoint"])
}

func TestGenerateRepairsInvalidOverlay(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.configDir, abilities.OverlayFileName), "local_tools: [oops\n")

	res, err := New(f.root, f.configDir).Generate(settings.Defaults(), "")
	require.NoError(t, err)
	assert.Equal(t, abilities.OverlayRepaired, res.Overlay)
	assert.Contains(t, res.ToolIDs, "echo")
}

func TestGenerateHonoursOverlayOverrideAndOutputDir(t *testing.T) {
	f := newFixture(t)
	s := settings.Defaults()
	s.AbilitiesFile = "custom/tools.yaml"

	g := New(f.root, f.configDir, WithOutputDir("out"))
	res, err := g.Generate(s, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.root, "out"), res.Dir)
	assert.Equal(t, filepath.Join(f.root, "custom", "tools.yaml"), res.AbilitiesPath)
	assert.FileExists(t, res.AbilitiesPath)
}

func TestGenerateRejectsMalformedBackendToolList(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.backend, "config", "models.yaml"), "- just\n- a list\n")

	_, err := New(f.root, f.configDir).Generate(settings.Defaults(), f.backend)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(f.root, DefaultOutputDir, AppConfigFile), "nothing is written when rendering fails")
}

func TestRenderDoesNotWriteOutput(t *testing.T) {
	f := newFixture(t)
	g := New(f.root, f.configDir)

	prevApp, prevTools, err := g.Previous()
	require.NoError(t, err)
	assert.Nil(t, prevApp)
	assert.Nil(t, prevTools)

	rendered, err := g.Render(settings.Defaults(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, rendered.AppConfig)
	assert.NotEmpty(t, rendered.Tools)
	assert.NoDirExists(t, g.OutputDir())

	_, err = g.Write(rendered)
	require.NoError(t, err)
	prevApp, prevTools, err = g.Previous()
	require.NoError(t, err)
	assert.Equal(t, rendered.AppConfig, prevApp)
	assert.Equal(t, rendered.Tools, prevTools)
}

func TestMergeToolsDocumentHandlesNullRoot(t *testing.T) {
	out, merged, err := mergeToolsDocument([]byte("~\n"), []abilities.Tool{{ID: "echo", Command: abilities.NewCommand("echo", "{message}")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo"}, abilities.IDs(merged))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Len(t, doc["local_tools"], 1)
	assert.Contains(t, doc, "summary_strategies")
}
