package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureWritesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "fileconv-test"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("engine")
	l.Info().Str("event", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fileconv-test", entry["service"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestConfigureLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Base()
	l.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())
}

func TestConversionIDRoundTrip(t *testing.T) {
	ctx := ContextWithConversionID(context.Background(), "abc")
	assert.Equal(t, "abc", ConversionIDFromContext(ctx))
	assert.Equal(t, "", ConversionIDFromContext(context.Background()))
}

func TestFromContextFallsBackToBase(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithConversionID(context.Background(), "id-1")
	FromContext(ctx).Info().Msg("x")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "id-1", entry["conversion_id"])
}
