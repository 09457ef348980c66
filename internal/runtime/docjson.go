package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// unwrapRootArray undoes RedisJSON's JSON.GET-with-a-path convention: a
// request for the root path "$" always wraps the match in a one-element
// array, unlike FT.SEARCH's "$" RETURN alias, which hands back the bare
// document body (spec.md §4.7; see internal/db/redis/search.go's
// parseFieldPairs for the latter).
func unwrapRootArray(raw []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return raw, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("runtime: unwrap JSON.GET root array: %w", err)
	}
	if len(arr) == 0 {
		return nil, ErrNotFound
	}
	return arr[0], nil
}

// setJSONPath writes value at a "$.a.b"-style path inside doc, creating
// intermediate objects as needed. The inverse of jsonLookup.
func setJSONPath(doc map[string]any, jsonPath string, value any) {
	trimmed := strings.TrimPrefix(jsonPath, "$.")
	trimmed = strings.TrimPrefix(trimmed, "$")
	if trimmed == "" {
		return
	}
	parts := strings.Split(trimmed, ".")
	cur := doc
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
}
