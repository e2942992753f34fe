package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("full file", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{
			"max_iterations": 50,
			"precision": 1e-8,
			"do_backward_propagation": false,
			"bz_tesla": 3.8
		}`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.GetMaxIterations())
		assert.Equal(t, 1e-8, cfg.GetPrecision())
		assert.False(t, cfg.GetDoBackwardPropagation())
		assert.Equal(t, 3.8, cfg.GetBzTesla())
	})

	t.Run("partial file falls back to defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"max_iterations": 7}`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.GetMaxIterations())
		assert.Equal(t, defaultPrecision, cfg.GetPrecision())
		assert.True(t, cfg.GetDoBackwardPropagation())
		assert.Equal(t, defaultBzTesla, cfg.GetBzTesla())
	})

	t.Run("empty object equals nil config", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{}`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		var nilCfg *TuningConfig
		want := []any{nilCfg.GetMaxIterations(), nilCfg.GetPrecision(), nilCfg.GetDoBackwardPropagation(), nilCfg.GetBzTesla()}
		got := []any{cfg.GetMaxIterations(), cfg.GetPrecision(), cfg.GetDoBackwardPropagation(), cfg.GetBzTesla()}
		assert.Empty(t, cmp.Diff(want, got))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfig(writeConfig(t, `{`))
		assert.Error(t, err)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfig(writeConfig(t, `{"max_iterations": 0}`))
		assert.Error(t, err)

		_, err = LoadConfig(writeConfig(t, `{"precision": -1}`))
		assert.Error(t, err)
	})
}

func TestDefaultsFileMatchesCompiledDefaults(t *testing.T) {
	t.Parallel()

	// The canonical defaults file must agree with the compiled-in
	// fallbacks so partial overrides behave predictably.
	cfg, err := LoadConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)

	assert.Equal(t, defaultMaxIterations, cfg.GetMaxIterations())
	assert.Equal(t, defaultPrecision, cfg.GetPrecision())
	assert.Equal(t, defaultBackwardPropagation, cfg.GetDoBackwardPropagation())
	assert.Equal(t, defaultBzTesla, cfg.GetBzTesla())
}
