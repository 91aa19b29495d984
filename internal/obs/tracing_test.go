package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerNoneIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: "none", ServiceName: "apotek"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported tracing exporter")
}

func TestSamplerDescription(t *testing.T) {
	require.Contains(t, samplerFor(0).Description(), "AlwaysOnSampler")
	require.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestSQLOperation(t *testing.T) {
	require.Equal(t, "SELECT", sqlOperation("  select * from bills"))
	require.Equal(t, "UNKNOWN", sqlOperation("   "))
	long := make([]byte, maxStatementLen+10)
	for i := range long {
		long[i] = 'x'
	}
	require.Len(t, truncateSQL(string(long)), maxStatementLen+3)
}
