package schema

import (
	"context"
	"sync"

	"github.com/darianrosebrook/sterling/internal/sterlingerr"
)

// entry holds the per-entry lifecycle state: Unregistered -> Registered ->
// Migrated(n). entry.generation counts migrations; 0 means never migrated.
type entry struct {
	def        SchemaDef
	hash       string
	generation int
	history    []SchemaDef // prior versions, oldest first, for (old-schema, signature) addressing
}

// Registry is the schema registry (C2). It owns schema definitions;
// writes are serialized with a mutex, matching the teacher's
// RWMutex-guarded in-memory store idiom (internal/storage/memory).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register registers schema_id for the first time, or accepts a
// byte-identical re-registration as a no-op (I2). Registering the same
// schema_id with a different semantic hash is rejected.
func (r *Registry) Register(_ context.Context, def SchemaDef) error {
	h, err := def.SemanticHash()
	if err != nil {
		return sterlingerr.Wrap("schema.Register: compute semantic hash", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[def.SchemaID]
	if !ok {
		r.entries[def.SchemaID] = &entry{def: def, hash: h}
		return nil
	}
	if existing.hash == h {
		return nil // identical re-registration: no-op (I2)
	}
	return sterlingerr.Wrapf(sterlingerr.ErrSchemaHashConflict,
		"schema.Register: schema_id %q already registered with a different semantic hash", def.SchemaID)
}

// Get returns the live (possibly migrated) definition for schema_id.
func (r *Registry) Get(_ context.Context, schemaID string) (*SchemaDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[schemaID]
	if !ok {
		return nil, sterlingerr.Wrapf(sterlingerr.ErrSchemaUnknown, "schema.Get: %q", schemaID)
	}
	def := e.def
	return &def, nil
}

// GetVersion returns the definition for schema_id as it existed at
// generation gen (0 = original registration), used to address claims
// created under an older schema version by their (old-schema, signature)
// pair (spec.md §4.2 migrate()).
func (r *Registry) GetVersion(_ context.Context, schemaID string, gen int) (*SchemaDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[schemaID]
	if !ok {
		return nil, sterlingerr.Wrapf(sterlingerr.ErrSchemaUnknown, "schema.GetVersion: %q", schemaID)
	}
	if gen == e.generation {
		def := e.def
		return &def, nil
	}
	if gen < 0 || gen > len(e.history) {
		return nil, sterlingerr.Wrapf(sterlingerr.ErrSchemaUnknown, "schema.GetVersion: %q has no generation %d", schemaID, gen)
	}
	def := e.history[gen]
	return &def, nil
}

// List returns every registered live schema definition.
func (r *Registry) List(_ context.Context) ([]SchemaDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SchemaDef, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.def)
	}
	return out, nil
}

// IsRegistered reports whether schema_id has a live entry.
func (r *Registry) IsRegistered(_ context.Context, schemaID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[schemaID]
	return ok
}

// MigrationDescriptor carries the new definition and policy for a
// migration. It never removes older versions; claims created under the
// old schema remain addressable by (old-schema-generation, signature).
type MigrationDescriptor struct {
	NewDef          SchemaDef
	MigrationPolicy MigrationPolicy
}

// Migrate produces a new semantic hash for schema_id and records migration
// metadata. The prior definition is retained in history so claims minted
// under it remain addressable.
func (r *Registry) Migrate(_ context.Context, schemaID string, desc MigrationDescriptor) (*SchemaDef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[schemaID]
	if !ok {
		return nil, sterlingerr.Wrapf(sterlingerr.ErrSchemaUnknown, "schema.Migrate: %q", schemaID)
	}

	newDef := desc.NewDef
	newDef.SchemaID = schemaID
	policy := desc.MigrationPolicy
	newDef.MigrationPolicy = &policy

	newHash, err := newDef.SemanticHash()
	if err != nil {
		return nil, sterlingerr.Wrap("schema.Migrate: compute semantic hash", err)
	}
	if newHash == e.hash {
		return &e.def, nil // identical content: no-op migration
	}

	e.history = append(e.history, e.def)
	e.def = newDef
	e.hash = newHash
	e.generation++

	def := e.def
	return &def, nil
}

// Generation returns the current migration generation of schema_id (0 if
// never migrated).
func (r *Registry) Generation(_ context.Context, schemaID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[schemaID]
	if !ok {
		return 0, sterlingerr.Wrapf(sterlingerr.ErrSchemaUnknown, "schema.Generation: %q", schemaID)
	}
	return e.generation, nil
}
