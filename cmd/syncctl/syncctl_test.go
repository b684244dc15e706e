package main

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selfAPI/internal/feedsync"
	"selfAPI/services"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("INSTAGRAM_ACCESS_TOKEN", "")
	t.Setenv("VERCEL_TOKEN", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSync_AllSkippedWithoutCredentials(t *testing.T) {
	out, err := runCLI(t, "sync", "--json")
	require.NoError(t, err)

	var results []feedsync.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	for _, res := range results {
		assert.True(t, res.Skipped, res.Source)
	}
}

func TestSync_TextOutput(t *testing.T) {
	out, err := runCLI(t, "sync", "youtube")
	require.NoError(t, err)
	assert.Contains(t, out, "youtube")
	assert.Contains(t, out, "skipped")
}

func TestSync_UnknownSource(t *testing.T) {
	_, err := runCLI(t, "sync", "tiktok")
	assert.ErrorIs(t, err, services.ErrUnknownSource)
}

func TestStats(t *testing.T) {
	out, err := runCLI(t, "stats", "dsa")
	require.NoError(t, err)
	assert.Contains(t, out, "dsa: 0 entries")

	_, err = runCLI(t, "stats", "tiktok")
	assert.ErrorIs(t, err, services.ErrUnknownCollection)

	_, err = runCLI(t, "stats")
	assert.Error(t, err)
}
