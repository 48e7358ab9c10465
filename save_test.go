package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := save("hello\n", "example.com.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example.com.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), fi.Mode().Perm())
	}
	assert.Equal(t, []string{"example.com.txt"}, listDir(t, dir))
}

func TestSave_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example.com.txt")
	require.NoError(t, os.WriteFile(path, []byte("a much longer old body"), 0644))

	_, err := save("new", "example.com.txt", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.Equal(t, []string{"example.com.txt"}, listDir(t, dir))
}

func TestSave_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	_, err := save("data", "example.com.txt", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, "save", failedStep(err))
	assert.NoFileExists(t, filepath.Join(dir, "example.com.txt"))
}

func TestSave_RenameFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory in the way makes the final rename fail.
	target := filepath.Join(dir, "example.com.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0755))

	_, err := save("data", "example.com.txt", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, []string{"example.com.txt"}, listDir(t, dir))
}
