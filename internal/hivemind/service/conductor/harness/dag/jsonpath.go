package dag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kiosk404/echoryn/pkg/utils/json"
)

// extractJSONPath resolves a dotted path (e.g. "result.items.0.title")
// against a JSON document, returning the leaf value's string form. Array
// indices are plain integers in the path.
func extractJSONPath(doc string, path string) (string, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return "", fmt.Errorf("dag: json_extract: invalid json: %w", err)
	}

	if path == "" {
		return fmt.Sprintf("%v", v), nil
	}

	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[seg]
			if !ok {
				return "", fmt.Errorf("dag: json_extract: no field %q", seg)
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return "", fmt.Errorf("dag: json_extract: invalid index %q", seg)
			}
			cur = node[idx]
		default:
			return "", fmt.Errorf("dag: json_extract: cannot index into %T at %q", cur, seg)
		}
	}

	switch leaf := cur.(type) {
	case string:
		return leaf, nil
	default:
		return fmt.Sprintf("%v", leaf), nil
	}
}
