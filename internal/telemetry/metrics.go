package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// instruments mirrors the teacher's doltMetrics package var: created
// eagerly against the global delegating meter provider, so every
// instrument is valid immediately and starts forwarding real data the
// moment Init installs a real provider.
var instruments struct {
	opsCommitted      metric.Int64Counter
	conflictsDetected metric.Int64Counter
	packetsAssembled  metric.Int64Counter
	failuresCertified metric.Int64Counter
	assemblyLatencyMs metric.Float64Histogram
}

func init() {
	m := otel.Meter("github.com/darianrosebrook/sterling")

	instruments.opsCommitted, _ = m.Int64Counter("sterling.ops.committed",
		metric.WithDescription("SemanticOps successfully committed to the ledger"),
		metric.WithUnit("{op}"),
	)
	instruments.conflictsDetected, _ = m.Int64Counter("sterling.conflicts.detected",
		metric.WithDescription("conflict sets opened by the conflict engine"),
		metric.WithUnit("{conflict}"),
	)
	instruments.packetsAssembled, _ = m.Int64Counter("sterling.packets.assembled",
		metric.WithDescription("decision packets assembled"),
		metric.WithUnit("{packet}"),
	)
	instruments.failuresCertified, _ = m.Int64Counter("sterling.failures.certified",
		metric.WithDescription("certified failures produced"),
		metric.WithUnit("{failure}"),
	)
	instruments.assemblyLatencyMs, _ = m.Float64Histogram("sterling.packet.assembly_ms",
		metric.WithDescription("time spent assembling a decision packet"),
		metric.WithUnit("ms"),
	)
}
