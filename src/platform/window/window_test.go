package window

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Height = 0
	require.Error(t, cfg.Validate())
}

func TestResizedFlag(t *testing.T) {
	w := &Window{log: slog.Default()}
	assert.False(t, w.Resized())

	w.framebufferResized(nil, 400, 300)
	assert.True(t, w.Resized())
	w.ResetResized()
	assert.False(t, w.Resized())
}
