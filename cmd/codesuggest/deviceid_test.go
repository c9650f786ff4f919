package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateDeviceID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	id := loadOrCreateDeviceID(dir)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "device_id"))
	require.NoError(t, err)
	assert.Equal(t, id, string(data))

	assert.Equal(t, id, loadOrCreateDeviceID(dir), "stable across runs")
}

func TestLoadOrCreateDeviceIDReplacesGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device_id")
	require.NoError(t, os.WriteFile(path, []byte("not-a-uuid\n"), 0644))

	id := loadOrCreateDeviceID(dir)
	assert.NotEqual(t, "not-a-uuid", id)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, id, string(data))
}

func TestLoadOrCreateDeviceIDWithoutStateDir(t *testing.T) {
	a, b := loadOrCreateDeviceID(""), loadOrCreateDeviceID("")
	assert.NotEqual(t, a, b, "ephemeral ids")
}
