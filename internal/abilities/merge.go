package abilities

import "strings"

// Merge combines base and overlay tools keyed by id. An overlay entry
// replaces the base entry with the same id; ids present only in base are
// kept unchanged. The result lists base ids in their original order followed
// by overlay-only ids in overlay order. Entries without an id are dropped,
// and a repeated id within one list keeps its last definition.
func Merge(base, overlay []Tool) []Tool {
	merged := make([]Tool, 0, len(base)+len(overlay))
	index := make(map[string]int, len(base)+len(overlay))

	put := func(tool Tool) {
		id := strings.TrimSpace(tool.ID)
		if id == "" {
			return
		}
		if pos, ok := index[id]; ok {
			merged[pos] = tool
			return
		}
		index[id] = len(merged)
		merged = append(merged, tool)
	}

	for _, tool := range base {
		put(tool)
	}
	for _, tool := range overlay {
		put(tool)
	}
	return merged
}

// IDs returns the tool ids in order.
func IDs(tools []Tool) []string {
	ids := make([]string, len(tools))
	for i, tool := range tools {
		ids[i] = tool.ID
	}
	return ids
}
