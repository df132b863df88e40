package vecindex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_Roundtrip(t *testing.T) {
	dir := t.TempDir()

	built, err := Build([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{1, 1, 1},
	})
	require.NoError(t, err)
	require.NoError(t, built.Save(dir, "all-minilm"))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, built.Dimension(), loaded.Dimension())
	assert.Equal(t, built.Len(), loaded.Len())

	// A loaded index must search identically to the one it was saved from.
	ctx := context.Background()
	query := []float32{0.2, 0.9, 0.1}
	want, err := built.Search(ctx, query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(ctx, query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	built, err := Build([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	require.NoError(t, built.Save(dir, "all-minilm"))

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, m.IndexVersion)
	assert.Equal(t, "all-minilm", m.Model)
	assert.Equal(t, 2, m.Dim)
	assert.Equal(t, 2, m.Count)
	assert.True(t, m.Normalized)
	assert.NotEmpty(t, m.BuildID)
	assert.NotEmpty(t, m.CreatedAt)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("corrupt manifest", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{bad"), 0o644))
		_, err := Load(dir)
		assert.Error(t, err)
	})

	t.Run("truncated vector file", func(t *testing.T) {
		dir := t.TempDir()
		built, err := Build([][]float32{{1, 0}, {0, 1}})
		require.NoError(t, err)
		require.NoError(t, built.Save(dir, "all-minilm"))

		// Drop the last row's bytes; the size check must catch it.
		path := filepath.Join(dir, "vectors.f32")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))

		_, err = Load(dir)
		assert.ErrorContains(t, err, "size mismatch")
	})

	t.Run("manifest with invalid counts", func(t *testing.T) {
		dir := t.TempDir()
		m := Manifest{IndexVersion: 1, Dim: 0, Count: 3}
		b, err := json.Marshal(m)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), b, 0o644))

		_, err = Load(dir)
		assert.Error(t, err)
	})
}
