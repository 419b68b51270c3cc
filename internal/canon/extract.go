package canon

import (
	"fmt"
	"sort"
	"strings"
)

// ExtractSemanticPayload reduces v (already normalized to map[string]any /
// []any / scalar form, or a struct that normalize can flatten) to only the
// dotted paths named in allow, after dropping any path named in deny. A
// trailing ".*" segment matches every key of the map it selects.
//
// normalizeLists, when true, sorts any []any found at a selected path by its
// canonical string form — used for unordered multi-valued slots at claim
// signature time.
func ExtractSemanticPayload(v any, allow, deny []string, normalizeLists bool) (map[string]any, error) {
	norm, err := normalize(v, "$")
	if err != nil {
		return nil, err
	}
	root, ok := norm.(map[string]any)
	if !ok {
		return nil, &HashError{Err: fmt.Errorf("extract: root value must be an object, got %T", norm)}
	}

	denied := make(map[string]bool, len(deny))
	for _, d := range deny {
		denied[d] = true
	}

	out := map[string]any{}
	for _, path := range allow {
		if denied[path] {
			continue
		}
		if err := extractPath(root, out, strings.Split(path, "."), nil); err != nil {
			return nil, err
		}
	}
	if normalizeLists {
		sortListsInPlace(out)
	}
	return out, nil
}

// extractPath copies the value at segs (a dotted path split into segments)
// from src into the same nested position in dst.
func extractPath(src map[string]any, dst map[string]any, segs []string, walked []string) error {
	if len(segs) == 0 {
		return nil
	}
	key := segs[0]
	walked = append(walked, key)

	if key == "*" {
		for k, v := range src {
			if err := setNested(dst, append(walked[:len(walked)-1], k), v); err != nil {
				return err
			}
		}
		return nil
	}

	val, ok := src[key]
	if !ok {
		return nil // allowlisted path absent from this value; not an error
	}
	if len(segs) == 1 {
		return setNested(dst, walked, val)
	}
	child, ok := val.(map[string]any)
	if !ok {
		// Path continues but value isn't an object: nothing to descend into.
		return nil
	}
	return extractPath(child, dst, segs[1:], walked)
}

func setNested(dst map[string]any, path []string, v any) error {
	cur := dst
	for i, seg := range path {
		if i == len(path)-1 {
			cur[seg] = v
			return nil
		}
		next, ok := cur[seg]
		if !ok {
			nm := map[string]any{}
			cur[seg] = nm
			cur = nm
			continue
		}
		nm, ok := next.(map[string]any)
		if !ok {
			return &HashError{Path: strings.Join(path, "."), Err: fmt.Errorf("path conflict: %q is not an object", seg)}
		}
		cur = nm
	}
	return nil
}

func sortListsInPlace(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			switch c := child.(type) {
			case []any:
				t[k] = sortedStrList(c)
			case map[string]any:
				sortListsInPlace(c)
			}
		}
	case []any:
		for _, child := range t {
			sortListsInPlace(child)
		}
	}
}

func sortedStrList(list []any) []any {
	strs := make([]string, len(list))
	byStr := make(map[string]any, len(list))
	for i, v := range list {
		b, err := Serialize(v)
		s := string(b)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		}
		strs[i] = s
		byStr[s] = v
	}
	sort.Strings(strs)
	out := make([]any, len(strs))
	for i, s := range strs {
		out[i] = byStr[s]
	}
	return out
}

// SemanticHash composes ExtractSemanticPayload and Hash: it reduces v to the
// allowlisted paths, then hashes the result under prefix.
func SemanticHash(v any, allow []string, prefix string) (string, error) {
	payload, err := ExtractSemanticPayload(v, allow, nil, false)
	if err != nil {
		return "", err
	}
	return Hash(payload, prefix)
}
