package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dashlink/internal/comm"
)

func quietConfig(t *testing.T, cfg Config) *Config {
	t.Helper()
	cfg.LogLevel = "error"
	cfg.LogFormat = "json"
	out, err := NewConfig(cfg)
	require.NoError(t, err)
	return out
}

func decodeSnapshot(t *testing.T, raw []byte) comm.DocumentPayload {
	t.Helper()
	var doc comm.DocumentPayload
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestRunOnceRendersDemoDashboard(t *testing.T) {
	testApp, out := SetupAppTest(t, quietConfig(t, Config{Once: true}), nil)

	require.NoError(t, testApp.Run(context.Background()))

	doc := decodeSnapshot(t, out.Bytes())
	require.Len(t, doc.Models, 3)

	byType := make(map[string]comm.ModelPayload)
	for _, mp := range doc.Models {
		byType[mp.Type] = mp
	}

	slider, ok := byType["Slider"]
	require.True(t, ok)
	require.Len(t, slider.Changes["value"], 1, "demo link attaches one bridge to the slider")
	assert.NotEmpty(t, slider.Changes["value"][0].Code)

	line, ok := byType["Line"]
	require.True(t, ok)
	assert.JSONEq(t, "2", string(line.Props["line_width"]), "initial value syncs to the target")
}

func TestRunOnceTearsSessionDown(t *testing.T) {
	testApp, _ := SetupAppTest(t, quietConfig(t, Config{Once: true}), nil)

	require.NoError(t, testApp.Run(context.Background()))

	assert.Empty(t, testApp.Sessions().List(), "once mode must not leak sessions")
}

func TestRunOnceWithManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "links.hcl")
	manifestHCL := `
jslink {
  source     = "column.slider"
  target     = "column.plot"
  properties = { value = "line_width" }
}
`
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestHCL), 0o644))

	testApp, out := SetupAppTest(t, quietConfig(t, Config{Once: true, ManifestPath: manifestPath}), nil)

	require.NoError(t, testApp.Run(context.Background()))

	doc := decodeSnapshot(t, out.Bytes())
	var sliderChanges int
	for _, mp := range doc.Models {
		if mp.Type == "Slider" {
			sliderChanges = len(mp.Changes["value"])
		}
	}
	assert.Equal(t, 1, sliderChanges, "manifest link attaches one bridge to the slider")
}

func TestRunOnceMissingManifest(t *testing.T) {
	// A nonexistent manifest path is skipped, leaving a dashboard
	// without any declared links.
	testApp, out := SetupAppTest(t, quietConfig(t, Config{Once: true, ManifestPath: "does-not-exist"}), nil)

	require.NoError(t, testApp.Run(context.Background()))

	doc := decodeSnapshot(t, out.Bytes())
	for _, mp := range doc.Models {
		assert.Empty(t, mp.Changes, "no manifest declarations means no bridges")
	}
}

func TestNewConfigRequiresListenAddrWhenServing(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.ErrorContains(t, err, "ListenAddr is required")

	cfg, err := NewConfig(Config{Once: true})
	require.NoError(t, err)
	assert.True(t, cfg.Once)
}
