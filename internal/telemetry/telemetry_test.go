package telemetry_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/internal/telemetry"
)

func TestInitNoneIsNoop(t *testing.T) {
	shutdown, err := telemetry.Init(context.Background(), telemetry.Options{Exporter: telemetry.ExporterNone})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitStdoutInstallsProvidersAndShutsDownCleanly(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := telemetry.Init(context.Background(), telemetry.Options{
		Exporter: telemetry.ExporterStdout,
		Stdout:   &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	telemetry.RecordOpCommitted(context.Background())
	require.NoError(t, shutdown(context.Background()))
}

func TestInitOTLPRequiresEndpoint(t *testing.T) {
	_, err := telemetry.Init(context.Background(), telemetry.Options{Exporter: telemetry.ExporterOTLP})
	assert.Error(t, err)
}

func TestRecordHelpersDoNotPanicBeforeInit(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		telemetry.RecordOpCommitted(ctx)
		telemetry.RecordConflictDetected(ctx, 2)
		telemetry.RecordConflictDetected(ctx, 0)
		telemetry.RecordPacketAssembled(ctx, 12.5)
		telemetry.RecordFailureCertified(ctx)
	})
}
