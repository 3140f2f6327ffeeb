package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/config"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/extract"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/heuristics"
)

func TestBackend(t *testing.T) {
	routing := Backend(&config.Config{}, nil)
	assert.IsType(t, &extract.PDFBackend{}, routing.Fast)
	assert.Nil(t, routing.HiRes)

	_, err := routing.ExtractRaw(context.Background(), []byte("%PDF"), extract.StrategyHiRes, nil)
	assert.ErrorIs(t, err, extract.ErrUnsupportedStrategy)

	routing = Backend(&config.Config{ExtractorURL: "http://localhost:8000", ExtractorTimeout: time.Minute}, nil)
	assert.IsType(t, &extract.HTTPBackend{}, routing.HiRes)
}

func TestLoadHeuristics_Default(t *testing.T) {
	h, err := LoadHeuristics(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, heuristics.Default().PageThreshold, h.Get().PageThreshold())
}

func TestLoadHeuristics_FileAndReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_threshold: 0.5\n"), 0o600))

	h, err := LoadHeuristics(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, h.Get().PageThreshold())

	require.NoError(t, os.WriteFile(path, []byte("page_threshold: 0.7\n"), 0o600))
	assert.Eventually(t, func() bool {
		return h.Get().PageThreshold() == 0.7
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLoadHeuristics_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("visual_patterns: {\"(\": 0.2}\n"), 0o600))

	_, err := LoadHeuristics(context.Background(), path, nil)
	assert.ErrorContains(t, err, "load heuristics")
}
