package canon_test

import (
	"encoding/json"
	"testing"

	"github.com/darianrosebrook/sterling/internal/canon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeSortsKeys(t *testing.T) {
	a, err := canon.Serialize(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	b, err := canon.Serialize(map[string]any{"a": 2, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, `{"a":2,"b":1}`, string(a))
}

func TestSerializeStableNumberForm(t *testing.T) {
	a, err := canon.Serialize(map[string]any{"n": 1.0})
	require.NoError(t, err)
	b, err := canon.Serialize(map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestHashDomainSeparation(t *testing.T) {
	v := map[string]any{"x": 1}
	h1, err := canon.Hash(v, canon.PrefixSchema)
	require.NoError(t, err)
	h2, err := canon.Hash(v, canon.PrefixClaim)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestHashDeterministic(t *testing.T) {
	v := map[string]any{"x": []any{"c", "a", "b"}, "y": map[string]any{"z": 1}}
	h1, err := canon.Hash(v, canon.PrefixClaim)
	require.NoError(t, err)
	h2, err := canon.Hash(v, canon.PrefixClaim)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestSerializeRejectsNonSerializable(t *testing.T) {
	_, err := canon.Serialize(map[string]any{"fn": func() {}})
	require.Error(t, err)
	var hashErr *canon.HashError
	require.ErrorAs(t, err, &hashErr)
}

func TestExtractSemanticPayloadAllowlist(t *testing.T) {
	v := map[string]any{
		"schema_id": "sterling.person.v1",
		"kind":      "ENTITY",
		"slots":     []any{"name"},
		"description": "noise that should not affect the hash",
	}
	payload, err := canon.ExtractSemanticPayload(v, []string{"schema_id", "kind", "slots"}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"schema_id": "sterling.person.v1",
		"kind":      "ENTITY",
		"slots":     []any{"name"},
	}, payload)
}

func TestExtractSemanticPayloadWildcard(t *testing.T) {
	v := map[string]any{
		"evidence_policy": map[string]any{"min_evidence": 1, "modalities": []any{"text"}},
	}
	payload, err := canon.ExtractSemanticPayload(v, []string{"evidence_policy.*"}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"evidence_policy": map[string]any{"min_evidence": 1, "modalities": []any{"text"}},
	}, payload)
}

func TestExtractSemanticPayloadNormalizesLists(t *testing.T) {
	v := map[string]any{"tags": []any{"zebra", "apple", "mango"}}
	payload, err := canon.ExtractSemanticPayload(v, []string{"tags"}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []any{"apple", "mango", "zebra"}, payload["tags"])
}

func TestSemanticHashExcludesNonAllowlistedFields(t *testing.T) {
	base := map[string]any{"schema_id": "s1", "kind": "ENTITY"}
	withNoise := map[string]any{"schema_id": "s1", "kind": "ENTITY", "description": "changed"}

	h1, err := canon.SemanticHash(base, []string{"schema_id", "kind"}, canon.PrefixSchema)
	require.NoError(t, err)
	h2, err := canon.SemanticHash(withNoise, []string{"schema_id", "kind"}, canon.PrefixSchema)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDoubleCanonicalizeIsIdempotent(t *testing.T) {
	v := map[string]any{"a": 1, "b": []any{3, 2, 1}}
	b1, err := canon.Serialize(v)
	require.NoError(t, err)
	var roundTripped any
	require.NoError(t, json.Unmarshal(b1, &roundTripped))
	b2, err := canon.Serialize(roundTripped)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}
