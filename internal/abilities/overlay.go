package abilities

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	auraerrors "aura/internal/errors"
	"aura/internal/fsutil"
	"aura/internal/logging"
)

const (
	// OverlayFileName is the default overlay file under the config directory.
	OverlayFileName = "abilities.yaml"
	// ExampleFileName is the bundled overlay template.
	ExampleFileName = OverlayFileName + ".example"
	// EnvAbilitiesFile hands the resolved overlay path to the backend.
	EnvAbilitiesFile = "AURA_ABILITIES_FILE"
)

// Keys under which a mapping-shaped document may hold its tool list.
var listKeys = []string{"local_tools", "abilities"}

var errEmptyOverlay = errors.New("overlay is empty")

// ResolveOverlayPath returns the overlay location. An explicit override wins
// and is resolved against root when relative.
func ResolveOverlayPath(root, configDir, override string) string {
	override = strings.TrimSpace(override)
	if override == "" {
		return filepath.Join(configDir, OverlayFileName)
	}
	if filepath.IsAbs(override) {
		return override
	}
	return filepath.Join(root, override)
}

// EnsureStatus describes what EnsureOverlay did to the overlay file.
type EnsureStatus int

const (
	OverlayKept EnsureStatus = iota
	OverlayCreatedFromExample
	OverlayCreatedDefault
	OverlayRepaired
)

func (s EnsureStatus) String() string {
	switch s {
	case OverlayKept:
		return "kept"
	case OverlayCreatedFromExample:
		return "created from example"
	case OverlayCreatedDefault:
		return "created with defaults"
	case OverlayRepaired:
		return "repaired with defaults"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// EnsureOverlay guarantees that path holds a structurally valid overlay.
// A valid file is left untouched. A missing or empty file is created from
// example when that is valid, otherwise from DefaultContent. An invalid
// file is replaced with DefaultContent.
func EnsureOverlay(path, example string, logger logging.Logger) (EnsureStatus, error) {
	logger = logging.OrNop(logger)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		verr := ValidateOverlay(data)
		if verr == nil {
			return OverlayKept, nil
		}
		if !errors.Is(verr, errEmptyOverlay) {
			logger.Warn("Abilities overlay %s is invalid (%v); restoring built-in defaults", path, verr)
			return OverlayRepaired, writeOverlay(path, []byte(DefaultContent))
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return OverlayKept, &auraerrors.GenerationError{Path: path, Message: "read abilities overlay", Err: err}
	}

	if example != "" {
		if content, err := os.ReadFile(example); err == nil {
			verr := ValidateOverlay(content)
			if verr == nil {
				logger.Info("Created abilities overlay %s from %s", path, example)
				return OverlayCreatedFromExample, writeOverlay(path, content)
			}
			logger.Warn("Abilities example %s is unusable (%v); using built-in defaults", example, verr)
		}
	}
	logger.Info("Created abilities overlay %s with built-in defaults", path)
	return OverlayCreatedDefault, writeOverlay(path, []byte(DefaultContent))
}

func writeOverlay(path string, content []byte) error {
	if err := fsutil.WriteFileAtomic(path, content, 0o644); err != nil {
		return &auraerrors.GenerationError{Path: path, Message: "write abilities overlay", Err: err}
	}
	written, err := os.ReadFile(path)
	if err != nil {
		return &auraerrors.GenerationError{Path: path, Message: "re-read abilities overlay", Err: err}
	}
	if err := ValidateOverlay(written); err != nil {
		return &auraerrors.GenerationError{Path: path, Message: "abilities overlay still invalid after repair", Err: err}
	}
	return nil
}

// ValidateOverlay reports whether data is a structurally valid overlay: a
// list of mappings, or a mapping holding such a list under local_tools or
// abilities. Empty or null documents are reported as empty.
func ValidateOverlay(data []byte) error {
	seq, err := overlayList(data)
	if err != nil {
		return err
	}
	for i, item := range seq.Content {
		if resolveAlias(item).Kind != yaml.MappingNode {
			return fmt.Errorf("entry %d is not a mapping", i)
		}
	}
	return nil
}

func overlayList(data []byte) (*yaml.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyOverlay
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errEmptyOverlay
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, errEmptyOverlay
	}
	return findToolList(root)
}

func findToolList(root *yaml.Node) (*yaml.Node, error) {
	switch root.Kind {
	case yaml.SequenceNode:
		return root, nil
	case yaml.MappingNode:
		// An empty list under an earlier key yields to a populated later one.
		var empty *yaml.Node
		for _, key := range listKeys {
			value := mappingValue(root, key)
			if value == nil {
				continue
			}
			value = resolveAlias(value)
			if value.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%s must be a list", key)
			}
			if len(value.Content) > 0 {
				return value, nil
			}
			if empty == nil {
				empty = value
			}
		}
		if empty != nil {
			return empty, nil
		}
		return nil, fmt.Errorf("mapping has neither %s", strings.Join(listKeys, " nor "))
	default:
		return nil, errors.New("document must be a list or a mapping")
	}
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// LoadOverlay reads the overlay at path and decodes its tools.
func LoadOverlay(path string) (ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("read abilities overlay: %w", err)
	}
	seq, err := overlayList(data)
	if err != nil {
		if errors.Is(err, errEmptyOverlay) {
			return ParseResult{}, nil
		}
		return ParseResult{}, fmt.Errorf("abilities overlay %s: %w", path, err)
	}
	return ParseTools(seq), nil
}
