// Package rpc implements Sterling's JSON-RPC-over-unix-socket daemon
// protocol (spec.md §2.3's daemon/direct fallback), grounded in the
// teacher's internal/rpc package: newline-delimited JSON requests over a
// long-lived socket connection, an Operation string dispatch table, and
// a dial-then-health-check client construction idiom.
package rpc

import (
	"encoding/json"

	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/ledger"
	"github.com/darianrosebrook/sterling/internal/packet"
	"github.com/darianrosebrook/sterling/internal/schema"
)

// Operation constants for every RPC the daemon serves.
const (
	OpPing           = "ping"
	OpHealth         = "health"
	OpSchemaRegister = "schema.register"
	OpSchemaGet      = "schema.get"
	OpSchemaList     = "schema.list"
	OpSchemaMigrate  = "schema.migrate"
	OpOpCommit       = "op.commit"
	OpOpList         = "op.list"
	OpConflictList   = "conflict.list"
	OpConflictShow   = "conflict.show"
	OpPacketAssemble = "packet.assemble"
	OpClaimGet       = "claim.get"
	OpClaimList      = "claim.list"
	OpFailureShow    = "failure.show"
	OpFailureList    = "failure.list"
)

// Request is one RPC call from client to daemon.
type Request struct {
	Operation     string          `json:"operation"`
	Args          json.RawMessage `json:"args,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	ClientVersion string          `json:"client_version,omitempty"`
}

// Response is one RPC reply from daemon to client.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PingResponse is OpPing's Data payload.
type PingResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthResponse is OpHealth's Data payload.
type HealthResponse struct {
	Status   string `json:"status"` // "healthy" | "unhealthy"
	UptimeMs int64  `json:"uptime_ms"`
	Error    string `json:"error,omitempty"`
}

// SchemaRegisterArgs is OpSchemaRegister's Args payload.
type SchemaRegisterArgs struct {
	Schema schema.SchemaDef `json:"schema"`
}

// SchemaGetArgs is OpSchemaGet's Args payload.
type SchemaGetArgs struct {
	SchemaID string `json:"schema_id"`
}

// SchemaMigrateArgs is OpSchemaMigrate's Args payload.
type SchemaMigrateArgs struct {
	SchemaID   string                      `json:"schema_id"`
	Descriptor schema.MigrationDescriptor `json:"descriptor"`
}

// OpCommitArgs is OpOpCommit's Args payload.
type OpCommitArgs struct {
	OperatorID string               `json:"operator_id"`
	Args       map[string]any       `json:"args,omitempty"`
	Delta      ledger.ClaimDelta    `json:"delta"`
	Support    []string             `json:"support,omitempty"`
	RunIntent  governance.RunIntent `json:"run_intent"`
}

// ConflictShowArgs is OpConflictShow's Args payload.
type ConflictShowArgs struct {
	Signature string `json:"signature"`
}

// PacketAssembleArgs is OpPacketAssemble's Args payload.
type PacketAssembleArgs struct {
	Task   packet.TaskSpec     `json:"task"`
	Budget packet.PacketBudget `json:"budget"`
}

// ClaimGetArgs is OpClaimGet's Args payload.
type ClaimGetArgs struct {
	Signature string `json:"signature"`
}

// ClaimListArgs is OpClaimList's Args payload; SchemaID empty lists every
// live claim.
type ClaimListArgs struct {
	SchemaID string `json:"schema_id,omitempty"`
}

// FailureShowArgs is OpFailureShow's Args payload.
type FailureShowArgs struct {
	RecordID string `json:"record_id"`
}
