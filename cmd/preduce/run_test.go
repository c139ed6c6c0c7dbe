package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReducersMergesFileAndFlags(t *testing.T) {
	fileReducers := map[string]string{"chunks": "preduce-chunks"}
	out, err := resolveReducers(fileReducers, []string{"balanced=preduce-balanced -pair=curly"})
	require.NoError(t, err)
	assert.Equal(t, "preduce-chunks", out["chunks"])
	assert.Equal(t, "preduce-balanced -pair=curly", out["balanced"])
}

func TestResolveReducersFlagOverridesFileEntryWithSameID(t *testing.T) {
	fileReducers := map[string]string{"chunks": "preduce-chunks --old"}
	out, err := resolveReducers(fileReducers, []string{"chunks=preduce-chunks --new"})
	require.NoError(t, err)
	assert.Equal(t, "preduce-chunks --new", out["chunks"])
}

func TestResolveReducersRejectsSpecWithoutEquals(t *testing.T) {
	_, err := resolveReducers(nil, []string{"chunks-preduce-chunks"})
	assert.Error(t, err)
}

func TestResolveReducersWithNoInputsReturnsEmptyMap(t *testing.T) {
	out, err := resolveReducers(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAbsPathLeavesAbsolutePathsUnchanged(t *testing.T) {
	got, err := absPath("/already/absolute/path")
	require.NoError(t, err)
	assert.Equal(t, "/already/absolute/path", got)
}

func TestAbsPathJoinsRelativePathWithWorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := absPath("relative/seed.c")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "relative/seed.c"), got)
}
