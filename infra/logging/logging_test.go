package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "debug", "json")
	require.NoError(t, err)

	cl := Component(l, "evictor")
	cl.Debug().Str("breed", "Golden").Msg("entry deleted")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "evictor", line["component"])
	assert.Equal(t, "Golden", line["breed"])
	assert.Equal(t, "debug", line["level"])
}

func TestNewFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "")
	require.NoError(t, err)
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
