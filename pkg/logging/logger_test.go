// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_StderrText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: LevelWarn, Service: "tasks", Stderr: &buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Slog().Info("hidden")
	logger.Slog().Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "service=tasks")
	assert.Contains(t, out, "k=v")
}

func TestNew_StderrJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{JSON: true, Stderr: &buf})
	require.NoError(t, err)

	logger.Slog().Info("hello", "n", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.EqualValues(t, 3, rec["n"])
}

func TestNew_FileAndStderr(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	logger, err := New(Config{LogDir: dir, Service: "tasks", Stderr: &buf})
	require.NoError(t, err)

	logger.Slog().With("request_id", "r1").Info("both")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	assert.Contains(t, buf.String(), "both")

	name := "tasks_" + time.Now().Format("2006-01-02") + ".log"
	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var rec map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
	assert.Equal(t, "both", rec["msg"])
	assert.Equal(t, "tasks", rec["service"])
	assert.Equal(t, "r1", rec["request_id"])
}

func TestNew_QuietWithoutFileDiscards(t *testing.T) {
	logger, err := New(Config{Quiet: true})
	require.NoError(t, err)
	assert.False(t, logger.Slog().Enabled(t.Context(), 0))
	logger.Slog().Error("dropped")
}

func TestNew_UnwritableLogDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	_, err := New(Config{LogDir: filepath.Join(blocker, "sub")})
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".aleutian"), expandPath("~/.aleutian"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.True(t, strings.HasPrefix(expandPath("rel/path"), "rel"))
}
