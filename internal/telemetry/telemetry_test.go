package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	assert.Error(t, err)
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "concierge"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestParseEndpoint(t *testing.T) {
	tests := map[string]struct {
		raw         string
		expEndpoint string
		expInsecure bool
	}{
		"An http URL should be insecure.": {
			raw:         "http://collector:4318",
			expEndpoint: "collector:4318",
			expInsecure: true,
		},
		"An https URL should be secure.": {
			raw:         "https://collector.example.com",
			expEndpoint: "collector.example.com",
		},
		"A bare host and port should be used as is.": {
			raw:         "localhost:4318",
			expEndpoint: "localhost:4318",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ep, insecure, err := parseEndpoint(test.raw)
			require.NoError(t, err)
			assert.Equal(t, test.expEndpoint, ep)
			assert.Equal(t, test.expInsecure, insecure)
		})
	}
}

func TestNewTracerProviderWithExporterEmitsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()

	tp, err := NewTracerProviderWithExporter(exp, Config{ServiceName: "testsvc", ServiceVersion: "v0"})
	require.NoError(t, err)

	_, sp := tp.Tracer("test").Start(context.Background(), "root.span")
	sp.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.NoError(t, tp.Shutdown(context.Background()))
	require.Len(t, spans, 1)
	assert.Equal(t, "root.span", spans[0].Name)

	require.NotNil(t, spans[0].Resource)
	found := false
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == attribute.Key("service.name") {
			found = kv.Value.AsString() == "testsvc"
		}
	}
	assert.True(t, found, "expected resource to include service.name=testsvc")
}
