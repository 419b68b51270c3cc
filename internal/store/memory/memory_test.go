package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/internal/store"
	"github.com/darianrosebrook/sterling/internal/store/memory"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	s := memory.New()
	a := store.Artifact{SchemaID: "claim.note/v1", Payload: []byte(`{"hello":"world"}`), Key: "sig-1"}

	require.NoError(t, s.Put(context.Background(), a))

	got, err := s.Get(context.Background(), "claim.note/v1", store.ComputeContentHash(a.Payload))
	require.NoError(t, err)
	assert.Equal(t, a.Payload, got.Payload)
}

func TestGetByKeyReturnsLatestPut(t *testing.T) {
	s := memory.New()
	first := store.Artifact{SchemaID: "claim.note/v1", Payload: []byte("v1"), Key: "sig-1"}
	second := store.Artifact{SchemaID: "claim.note/v1", Payload: []byte("v2"), Key: "sig-1"}
	require.NoError(t, s.Put(context.Background(), first))
	require.NoError(t, s.Put(context.Background(), second))

	got, err := s.GetByKey(context.Background(), "claim.note/v1", "sig-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Payload)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := memory.New()
	_, err := s.Get(context.Background(), "claim.note/v1", "nonexistent")
	assert.Error(t, err)
}

func TestGetDetectsTamperedPayload(t *testing.T) {
	s := memory.New()
	a := store.Artifact{SchemaID: "claim.note/v1", Payload: []byte("original"), Key: "sig-1"}
	require.NoError(t, s.Put(context.Background(), a))
	hash := store.ComputeContentHash(a.Payload)

	got, err := s.Get(context.Background(), "claim.note/v1", hash)
	require.NoError(t, err)
	got.Payload = []byte("tampered")
	assert.Error(t, store.Verify(got))
}
