package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"aura/internal/fsutil"
)

// ExampleFileName is the bundled template copied on first run.
const ExampleFileName = FileName + ".example"

// BootstrapStatus reports what Bootstrap did.
type BootstrapStatus int

const (
	BootstrapCreated BootstrapStatus = iota
	BootstrapAlreadyExists
	BootstrapExampleMissing
)

// BootstrapResult describes the outcome of Bootstrap.
type BootstrapResult struct {
	Status  BootstrapStatus
	Path    string
	Example string
}

// Bootstrap creates aura.yaml in dir from the bundled example when it does
// not exist yet. Callers holding a Loader must Invalidate it afterwards.
func Bootstrap(dir string) (BootstrapResult, error) {
	result := BootstrapResult{
		Path:    filepath.Join(dir, FileName),
		Example: filepath.Join(dir, ExampleFileName),
	}

	if _, err := os.Stat(result.Path); err == nil {
		result.Status = BootstrapAlreadyExists
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("stat %s: %w", result.Path, err)
	}

	if !fsutil.Exists(result.Example) {
		result.Status = BootstrapExampleMissing
		return result, nil
	}
	if err := fsutil.CopyFile(result.Example, result.Path, 0o600); err != nil {
		return result, fmt.Errorf("copy %s: %w", result.Example, err)
	}
	result.Status = BootstrapCreated
	return result, nil
}

// SaveValues rewrites top-level scalar keys of the YAML document at path,
// keeping comments and key order. Missing keys are appended in sorted order.
func SaveValues(path string, values map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config file: %w", err)
	}

	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if len(doc.Content) == 0 {
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config file %s: top level is not a mapping", path)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		setScalar(root, key, values[key])
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0o600)
}

func setScalar(mapping *yaml.Node, key, value string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			existing := mapping.Content[i+1]
			existing.Kind = yaml.ScalarNode
			existing.Tag = ""
			existing.Style = 0
			existing.Value = value
			existing.Content = nil
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value},
	)
}
