package telemetry

import "context"

// RecordOpCommitted increments the committed-ops counter. Call sites:
// internal/ledger's Commit, after a SemanticOp's content hash is computed.
func RecordOpCommitted(ctx context.Context) {
	instruments.opsCommitted.Add(ctx, 1)
}

// RecordConflictDetected increments the conflict counter by n. Call
// sites: internal/ledger's apply helpers, after each conflict.Engine
// OnCommit, with the number of newly opened conflict sets.
func RecordConflictDetected(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	instruments.conflictsDetected.Add(ctx, int64(n))
}

// RecordPacketAssembled increments the packet counter and records
// assembly latency. Call sites: internal/packet's Assemble, on the
// non-failure return path.
func RecordPacketAssembled(ctx context.Context, durationMs float64) {
	instruments.packetsAssembled.Add(ctx, 1)
	instruments.assemblyLatencyMs.Record(ctx, durationMs)
}

// RecordFailureCertified increments the certified-failure counter. Call
// sites: internal/packet's Assemble (missingEvidenceFailure) and
// internal/ledger's Commit (strict-mode abort).
func RecordFailureCertified(ctx context.Context) {
	instruments.failuresCertified.Add(ctx, 1)
}
