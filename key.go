package autotune

import "fmt"

// extractKey derives the cache key from the call's full argument mapping
// (positional args bound to argNames, unioned with kwargs).
//
// Go map iteration order is randomized per process, so unlike the Python
// original (which appends dtype tags in dict-iteration order) this walks
// argNames in its own fixed order for both the key-name lookup and the
// dtype-tag pass, keeping the derived key stable within a single process.
func extractKey(argNames []string, keys []string, bound map[string]any) []any {
	restricted := make(map[string]any, len(argNames))
	for _, name := range argNames {
		if v, ok := bound[name]; ok {
			restricted[name] = v
		}
	}

	key := make([]any, 0, len(keys)+len(argNames))
	for _, k := range keys {
		if v, ok := restricted[k]; ok {
			key = append(key, v)
		}
	}

	for _, name := range argNames {
		v, ok := restricted[name]
		if !ok {
			continue
		}
		if d, ok := v.(Dtyped); ok {
			key = append(key, d.Dtype())
		}
	}
	return key
}

// cacheKey converts extractKey's ordered value slice into a comparable Go
// map key by formatting each element; the policies use this as the map key
// type since []any is not itself comparable.
func cacheKey(parts []any) string {
	return fmt.Sprintf("%v", parts)
}
