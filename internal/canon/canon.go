// Package canon implements Sterling's canonical hashing layer: deterministic
// bytes for arbitrary values, domain-separated content hashes, and allowlist
// extraction for computing semantic hashes over a reduced view of a value.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Domain prefixes are prepended to the canonical preimage before hashing so
// that artifacts of different kinds never collide even if their reduced
// payloads happen to serialize identically.
const (
	PrefixSchema   = "schema_canon/v1:"
	PrefixClaim    = "claim_sig/v1:"
	PrefixOp       = "op_canon/v1:"
	PrefixConflict = "conflict_canon/v1:"
	PrefixPacket   = "packet_canon/v1:"
	PrefixFailure  = "failure_canon/v1:"
)

// HashError reports a failure to produce a canonical preimage. It is raised
// instead of silently coercing a non-serializable value to a string.
type HashError struct {
	Path string
	Err  error
}

func (e *HashError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("canon: %v", e.Err)
	}
	return fmt.Sprintf("canon: at %s: %v", e.Path, e.Err)
}

func (e *HashError) Unwrap() error { return e.Err }

// Serialize produces canonical JSON bytes for v: object keys sorted
// lexicographically, compact separators, stable number/bool/null forms.
// It never coerces unsupported types to strings; such values fail hard via
// a *HashError.
func Serialize(v any) ([]byte, error) {
	norm, err := normalize(v, "$")
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(norm)
	if err != nil {
		return nil, &HashError{Err: fmt.Errorf("marshal canonical form: %w", err)}
	}
	return buf, nil
}

// Hash returns the SHA-256 hex digest of prefix+Serialize(v).
func Hash(v any, prefix string) (string, error) {
	b, err := Serialize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(prefix), b...))
	return hex.EncodeToString(sum[:]), nil
}

// normalize walks v and produces a tree of only map[string]any, []any,
// string, float64/json.Number-safe numerics, bool, and nil, with map keys
// sorted so json.Marshal emits them in lexicographic order (the standard
// library already sorts map[string]any keys, so normalize's job is mainly
// to reject unsupported kinds and to flatten structs/other maps into
// map[string]any deterministically).
func normalize(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return t, nil
	case float64:
		return canonicalNumber(t), nil
	case float32:
		return canonicalNumber(float64(t)), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, &HashError{Path: path, Err: fmt.Errorf("invalid json.Number %q", t)}
		}
		return canonicalNumber(f), nil
	case map[string]any:
		out := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			nv, err := normalize(t[k], path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			nv, err := normalize(elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		// Fall back to a JSON round-trip for structs and other composite
		// types so callers can pass typed values directly; anything the
		// standard encoder itself cannot serialize fails hard here rather
		// than being coerced to a string.
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, &HashError{Path: path, Err: fmt.Errorf("non-serializable value of type %T: %w", t, err)}
		}
		var generic any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return nil, &HashError{Path: path, Err: err}
		}
		return normalize(generic, path)
	}
}

// canonicalNumber pins the JSON encoding of a float so that 1.0 and 1 do
// not silently hash differently across encoder versions: integral values
// are emitted without a fractional part.
func canonicalNumber(f float64) json.Number {
	if f == float64(int64(f)) {
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}
