package infra

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// writeZip creates a zip archive with the given name -> content entries.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestZipExpander_Expand(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "pack.zip")
	writeZip(t, archive, map[string]string{
		"Lato/Lato-Regular.ttf": "regular",
		"Lato/Lato-Bold.ttf":    "bold",
		"OFL.txt":               "license",
	})

	dest, err := NewZipExpander(dir).Expand(archive)

	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dest, "Lato", "Lato-Bold.ttf"))
	require.NoError(t, err)
	assert.Equal(t, "bold", string(data))
	assert.FileExists(t, filepath.Join(dest, "OFL.txt"))
}

func TestZipExpander_RejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{"../evil.ttf": "x"})

	_, err := NewZipExpander(dir).Expand(archive)

	assert.Equal(t, domain.KindIO, domain.KindOf(err))
	assert.NoFileExists(t, filepath.Join(dir, "evil.ttf"))
}

func TestZipExpander_NotAnArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.zip")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0644))

	_, err := NewZipExpander(dir).Expand(path)

	assert.Equal(t, domain.KindIO, domain.KindOf(err))
}

func TestZipExpander_Limits(t *testing.T) {
	t.Run("oversized entry", func(t *testing.T) {
		dir := t.TempDir()
		out := t.TempDir()
		archive := filepath.Join(dir, "big.zip")
		writeZip(t, archive, map[string]string{"big.ttf": "0123456789"})
		z := NewZipExpander(out)
		z.maxBytes = 4

		_, err := z.Expand(archive)

		assert.Equal(t, domain.KindIO, domain.KindOf(err))
		assert.Contains(t, err.Error(), "big.ttf")
		entries, err := os.ReadDir(out)
		require.NoError(t, err)
		assert.Empty(t, entries, "partial extraction is removed")
	})

	t.Run("too many entries", func(t *testing.T) {
		dir := t.TempDir()
		archive := filepath.Join(dir, "many.zip")
		writeZip(t, archive, map[string]string{"a.ttf": "a", "b.ttf": "b", "c.ttf": "c"})
		z := NewZipExpander(dir)
		z.maxEntries = 2

		_, err := z.Expand(archive)

		assert.Equal(t, domain.KindIO, domain.KindOf(err))
	})

	t.Run("entry at the limit", func(t *testing.T) {
		dir := t.TempDir()
		archive := filepath.Join(dir, "ok.zip")
		writeZip(t, archive, map[string]string{"ok.ttf": "1234"})
		z := NewZipExpander(dir)
		z.maxBytes = 4

		dest, err := z.Expand(archive)

		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dest, "ok.ttf"))
	})
}

func TestZipExpander_Cleanup(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "pack.zip")
	writeZip(t, archive, map[string]string{"a.ttf": "a"})
	z := NewZipExpander(dir)

	first, err := z.Expand(archive)
	require.NoError(t, err)
	second, err := z.Expand(archive)
	require.NoError(t, err)

	require.NoError(t, z.Cleanup())
	assert.NoDirExists(t, first)
	assert.NoDirExists(t, second)
	assert.FileExists(t, archive)

	assert.NoError(t, z.Cleanup(), "second cleanup is a no-op")
}
