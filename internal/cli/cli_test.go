package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePositionalDocPath(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"scene.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "scene.hcl", cfg.DocPath)
	assert.Equal(t, "render.png", cfg.OutputPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.WorkerCount)
	assert.False(t, cfg.UseGPU)
}

func TestParseDocFlagBeatsPositional(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"--doc", "from-flag", "positional"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "from-flag", cfg.DocPath)
}

func TestParseAllOptions(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-d", "docs/",
		"--out", "art.svg",
		"--service-url", "http://localhost:7860/generate",
		"--gpu",
		"--log-format", "text",
		"--log-level", "debug",
		"--workers", "4",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "docs/", cfg.DocPath)
	assert.Equal(t, "art.svg", cfg.OutputPath)
	assert.Equal(t, "http://localhost:7860/generate", cfg.ServiceURL)
	assert.True(t, cfg.UseGPU)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestParseNoArgsShowsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelpFlagExitsCleanly(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}

func TestParseRejectsInvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-level", "loud", "scene.hcl"}, &out)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseRejectsInvalidLogFormat(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-format", "yaml", "scene.hcl"}, &out)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--no-such-flag"}, &out)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
