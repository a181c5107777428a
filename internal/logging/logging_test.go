package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

func TestNew(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		log, err := New(level)
		require.NoError(t, err, level)
		require.NotNil(t, log)
		log.Sync()
	}

	_, err := New("verbose")
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
