// Package abilities manages the user-editable tool overlay and merges it
// into the backend's tool list.
package abilities

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template markers substituted by the backend at call time.
var templateMarkers = []string{"{prompt}", "{message}"}

// Command is a tool's invocation. A scalar YAML string is kept as a single
// token and written back as a scalar.
type Command struct {
	Tokens []string
	Scalar bool
}

// NewCommand builds a sequence-form command.
func NewCommand(tokens ...string) Command {
	return Command{Tokens: append([]string(nil), tokens...)}
}

func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*c = Command{}
			return nil
		}
		*c = Command{Tokens: []string{node.Value}, Scalar: true}
		return nil
	case yaml.SequenceNode:
		var tokens []string
		if err := node.Decode(&tokens); err != nil {
			return fmt.Errorf("command tokens: %w", err)
		}
		*c = Command{Tokens: tokens}
		return nil
	default:
		return fmt.Errorf("command must be a string or a list of strings (line %d)", node.Line)
	}
}

func (c Command) MarshalYAML() (any, error) {
	if c.Scalar && len(c.Tokens) == 1 {
		return c.Tokens[0], nil
	}
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, token := range c.Tokens {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: token})
	}
	return node, nil
}

// IsZero lets omitempty drop commands with no tokens.
func (c Command) IsZero() bool {
	return len(c.Tokens) == 0
}

// Templated reports whether any token carries a template marker.
func (c Command) Templated() bool {
	return c.markerTokens() > 0
}

func (c Command) markerTokens() int {
	count := 0
	for _, token := range c.Tokens {
		for _, marker := range templateMarkers {
			if strings.Contains(token, marker) {
				count++
				break
			}
		}
	}
	return count
}

func (c Command) String() string {
	return strings.Join(c.Tokens, " ")
}

// Tool is one entry of a tool list. Keys the launcher does not interpret are
// carried through unchanged in Extra.
type Tool struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Command     Command        `yaml:"command,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

var errMissingID = errors.New("missing id")

// Validate checks the invariants every merged tool must satisfy.
func (t Tool) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errMissingID
	}
	if n := t.Command.markerTokens(); n > 1 {
		return fmt.Errorf("tool %q: %d command tokens carry a template marker, expected one", t.ID, n)
	}
	return nil
}

// DisplayName returns the tool's name, or its id when the entry has none.
func (t Tool) DisplayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return t.ID
}

func (t Tool) normalized() Tool {
	t.ID = strings.TrimSpace(t.ID)
	return t
}

// ParseResult holds the tools decoded from a list plus the entries skipped.
type ParseResult struct {
	Tools   []Tool
	Skipped []error
}

// ParseTools decodes a YAML sequence of tool mappings. Malformed entries are
// reported in Skipped and left out of Tools.
func ParseTools(seq *yaml.Node) ParseResult {
	var result ParseResult
	if seq == nil {
		return result
	}
	seq = resolveAlias(seq)
	if seq.Kind != yaml.SequenceNode {
		result.Skipped = append(result.Skipped, fmt.Errorf("tool list must be a sequence (line %d)", seq.Line))
		return result
	}

	for i, item := range seq.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.MappingNode {
			result.Skipped = append(result.Skipped, fmt.Errorf("entry %d: not a mapping", i))
			continue
		}
		var tool Tool
		if err := item.Decode(&tool); err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		tool = tool.normalized()
		if err := tool.Validate(); err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		result.Tools = append(result.Tools, tool)
	}
	return result
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
