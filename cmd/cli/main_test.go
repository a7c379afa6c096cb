package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(context.Background(), out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	err := run(context.Background(), out, args)

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_OnceRendersDocument(t *testing.T) {
	t.Parallel()

	args := []string{"--once", "--log-level", "error"}
	out := &bytes.Buffer{}

	err := run(context.Background(), out, args)
	require.NoError(t, err)

	var doc struct {
		Session string           `json:"session"`
		Root    string           `json:"root"`
		Models  []map[string]any `json:"models"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.NotEmpty(t, doc.Session)
	require.Len(t, doc.Models, 3, "the demo dashboard renders a column, a slider, and a line")
}

func TestRun_OnceWithBrokenManifest(t *testing.T) {
	t.Parallel()

	invalidHCL := `
		jslink {
			source = "column.slider"
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "links.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"--once", "--log-level", "error", filePath}
	out := &bytes.Buffer{}

	runErr := run(context.Background(), out, args)

	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "failed to parse manifest")
}
