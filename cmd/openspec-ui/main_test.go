package main

import (
	"testing"

	"github.com/mevdschee/openspec-ui/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestQuietLoggerKeepsErrors(t *testing.T) {
	logger := newLogger(true)
	assert.True(t, logger.Core().Enabled(zap.ErrorLevel))
	assert.True(t, logger.Core().Enabled(zap.FatalLevel))
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestDefaultLoggerLevels(t *testing.T) {
	t.Setenv("OPENSPEC_UI_DEBUG", "")
	assert.True(t, newLogger(false).Core().Enabled(zap.InfoLevel))
	assert.False(t, newLogger(false).Core().Enabled(zap.DebugLevel))

	t.Setenv("OPENSPEC_UI_DEBUG", "1")
	assert.True(t, newLogger(false).Core().Enabled(zap.DebugLevel))
}

func TestConfigPath(t *testing.T) {
	t.Setenv("OPENSPEC_UI_CONFIG", "")
	assert.Equal(t, config.DefaultFile, configPath(""))

	t.Setenv("OPENSPEC_UI_CONFIG", "/etc/openspec-ui.yaml")
	assert.Equal(t, "/etc/openspec-ui.yaml", configPath(""))
	assert.Equal(t, "custom.json", configPath("custom.json"))
}
