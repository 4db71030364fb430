// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5678", cfg.Remote.BaseURL)
	assert.Equal(t, 3, cfg.Remote.MaxRetries)
	assert.Equal(t, time.Second, cfg.Remote.BaseDelay.Std())
	assert.Equal(t, 30*time.Second, cfg.Remote.MaxDelay.Std())
	assert.False(t, cfg.Engine.Strict)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: https://flows.example.com
  max_retries: 5
  base_delay: 500ms
  max_delay: 10s
engine:
  strict: true
logging:
  level: debug
  json: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://flows.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, 5, cfg.Remote.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Remote.BaseDelay.Std())
	assert.Equal(t, 10*time.Second, cfg.Remote.MaxDelay.Std())
	assert.True(t, cfg.Engine.Strict)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: https://from-file.example.com
`)
	t.Setenv(EnvBaseURL, "https://from-env.example.com")
	t.Setenv(EnvAPIKey, "secret-key")
	t.Setenv(EnvStrict, "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "secret-key", cfg.Remote.APIKey)
	assert.True(t, cfg.Engine.Strict)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad url", "remote:\n  base_url: not-a-url\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"negative retries", "remote:\n  base_url: http://localhost:5678\n  max_retries: -1\n"},
		{"malformed yaml", "remote: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsOversizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	big := make([]byte, MaxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	require.NoError(t, os.WriteFile(path, big, 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "exceeds")
}
