package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("HEARSAY_GRAMMAR replaces the grammar path", func(t *testing.T) {
		t.Setenv("HEARSAY_GRAMMAR", "/tmp/robot.sgm")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/robot.sgm", cfg.Grammar.Path)
	})

	t.Run("HEARSAY_LOG_LEVEL and HEARSAY_JOURNAL", func(t *testing.T) {
		t.Setenv("HEARSAY_LOG_LEVEL", "debug")
		t.Setenv("HEARSAY_JOURNAL", "/tmp/j.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "/tmp/j.db", cfg.Store.JournalPath)
	})

	t.Run("HEARSAY_MAX_DICTATION ignores garbage", func(t *testing.T) {
		t.Setenv("HEARSAY_MAX_DICTATION", "seven")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, 5, cfg.Grammar.MaxDictation)

		t.Setenv("HEARSAY_MAX_DICTATION", "7")
		cfg.applyEnvOverrides()
		assert.Equal(t, 7, cfg.Grammar.MaxDictation)
	})

	t.Run("overrides apply to a missing file too", func(t *testing.T) {
		t.Setenv("HEARSAY_ATTENTION_MODE", "only")

		cfg, err := Load(t.TempDir() + "/missing.yaml")
		require.NoError(t, err)
		assert.Equal(t, "only", cfg.Speech.AttentionMode)
		require.NoError(t, cfg.Validate())
	})
}
