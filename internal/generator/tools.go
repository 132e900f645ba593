package generator

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"aura/internal/abilities"
	auraerrors "aura/internal/errors"
)

// minimalTools is used when the backend ships no tool list at all.
const minimalTools = "local_tools: []\nembedding_providers: {}\nchat_providers: {}\nsummary_strategies: {}\n"

// Provider maps the backend expects to find in models.yaml.
var placeholderKeys = []string{"embedding_providers", "chat_providers", "summary_strategies"}

const minimalSource = "built-in minimal tool list"

// readBaseTools returns the backend's own tool list: config/models.yaml,
// then config/models.yaml.example, then the minimal document.
func readBaseTools(backendRoot string) ([]byte, string, error) {
	if strings.TrimSpace(backendRoot) == "" {
		return []byte(minimalTools), minimalSource, nil
	}
	for _, name := range []string{ToolsFile, ToolsFile + ".example"} {
		path := filepath.Join(backendRoot, "config", name)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, path, &auraerrors.GenerationError{Path: path, Message: "read backend tool list", Err: err}
		}
	}
	return []byte(minimalTools), minimalSource, nil
}

// mergeToolsDocument replaces local_tools in the base document with the
// merge of its entries and overlay. Other keys keep their order and content.
func mergeToolsDocument(base []byte, overlay []abilities.Tool, onSkip func(error)) ([]byte, []abilities.Tool, error) {
	var doc yaml.Node
	if len(bytes.TrimSpace(base)) > 0 {
		if err := yaml.Unmarshal(base, &doc); err != nil {
			return nil, nil, fmt.Errorf("parse base tool list: %w", err)
		}
	}
	if len(doc.Content) == 0 {
		if err := yaml.Unmarshal([]byte(minimalTools), &doc); err != nil {
			return nil, nil, err
		}
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		*root = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if root.Kind != yaml.MappingNode {
		return nil, nil, errors.New("base tool list must be a mapping")
	}

	var baseTools []abilities.Tool
	if value := mappingValue(root, "local_tools"); value != nil && value.Tag != "!!null" {
		parsed := abilities.ParseTools(value)
		for _, skipped := range parsed.Skipped {
			if onSkip != nil {
				onSkip(skipped)
			}
		}
		baseTools = parsed.Tools
	}
	merged := abilities.Merge(baseTools, overlay)

	var list yaml.Node
	if err := list.Encode(merged); err != nil {
		return nil, nil, fmt.Errorf("encode merged tools: %w", err)
	}
	setMappingValue(root, "local_tools", &list)

	for _, key := range placeholderKeys {
		if mappingValue(root, key) == nil {
			setMappingValue(root, key, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle})
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, nil, fmt.Errorf("encode tool list: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, nil, fmt.Errorf("encode tool list: %w", err)
	}
	return buf.Bytes(), merged, nil
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
