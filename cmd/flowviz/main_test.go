package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCommand(t *testing.T) {
	out, err := runCLI(t, "validate", writeFile(t, "pair.json", pairJSON))
	require.NoError(t, err)
	assert.Contains(t, out, "ok, 3 nodes, 1 links")

	bad := `{"nodes":[{"id":"A"}],"links":[{"source":"A","target":"Z","value":1}],"initialFocusNodeId":"A"}`
	out, err = runCLI(t, "validate", writeFile(t, "bad.json", bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 defects")
	assert.Contains(t, out, "dangling_link")
}

func TestValidateWarnsUnknownFocus(t *testing.T) {
	desc := strings.TrimSpace(pairYAML) + "\ninitialFocusNodeId: nowhere\n"
	out, err := runCLI(t, "validate", writeFile(t, "pair.yaml", desc))
	require.NoError(t, err)
	assert.Contains(t, out, `initial focus "nowhere"`)
}

func TestRenderCommand(t *testing.T) {
	desc := writeFile(t, "pair.json", pairJSON)
	dir := t.TempDir()

	tests := []struct {
		format string
		check  func(t *testing.T, data []byte)
	}{
		{formatSVG, func(t *testing.T, data []byte) {
			assert.True(t, bytes.HasPrefix(data, []byte("<svg")))
		}},
		{formatPNG, func(t *testing.T, data []byte) {
			assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
		}},
		{formatFrame, func(t *testing.T, data []byte) {
			var frame map[string]any
			require.NoError(t, json.Unmarshal(data, &frame))
			assert.Equal(t, 640.0, frame["width"])
		}},
		{formatLayout, func(t *testing.T, data []byte) {
			var layout map[string]any
			require.NoError(t, json.Unmarshal(data, &layout))
			assert.Len(t, layout["nodes"], 3)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out := filepath.Join(dir, "out."+tt.format)
			_, err := runCLI(t, "render", desc, "-f", tt.format, "-o", out, "--width", "640", "--height", "480", "--ticks", "500", "--fit")
			require.NoError(t, err)
			data, err := os.ReadFile(out)
			require.NoError(t, err)
			tt.check(t, data)
		})
	}
}

func TestRenderCommandStdout(t *testing.T) {
	out, err := runCLI(t, "render", writeFile(t, "pair.yaml", pairYAML), "--ticks", "50")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<svg"))
}

func TestRenderCommandErrors(t *testing.T) {
	desc := writeFile(t, "pair.json", pairJSON)

	_, err := runCLI(t, "render", desc, "-f", "gif")
	assert.ErrorContains(t, err, "unknown format")

	_, err = runCLI(t, "render", desc, "--config", writeFile(t, "bad.yaml", "width: -1\n"))
	assert.ErrorContains(t, err, "invalid EngineConfig.Width")

	_, err = runCLI(t, "render", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRenderCommandConfig(t *testing.T) {
	cfg := writeFile(t, "engine.yaml", "width: 300\nheight: 200\nvisual:\n  background: \"#000000\"\n")
	out, err := runCLI(t, "render", writeFile(t, "pair.json", pairJSON), "--config", cfg, "-f", "json", "--ticks", "10")
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &frame))
	assert.Equal(t, 300.0, frame["width"])
	assert.Equal(t, "#000000", frame["background"])
}

func TestRenderCommandBatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, "alpha.json", pairJSON)
	b := writeFile(t, "beta.yaml", pairYAML)
	bad := writeFile(t, "broken.json", `{"nodes":[{"id":"A"},{"id":"A"}]}`)
	out := filepath.Join(dir, "out")

	_, err := runCLI(t, "render", a, b, "-o", out, "-f", "layout", "--ticks", "50", "-j", "2")
	require.NoError(t, err)
	for _, name := range []string{"alpha.layout.json", "beta.layout.json"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.True(t, json.Valid(data), name)
	}

	_, err = runCLI(t, "render", a, bad, "-o", out, "--ticks", "50")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
	_, statErr := os.Stat(filepath.Join(out, "alpha.svg"))
	assert.NoError(t, statErr, "good descriptors are still written")

	_, err = runCLI(t, "render", a, b)
	assert.ErrorContains(t, err, "needs --output")
}

func TestRenderCommandBatchNameClash(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	first := writeFile(t, "fund.json", pairJSON)
	second := writeFile(t, "fund.yaml", pairYAML)
	third := writeFile(t, "fund.json", pairJSON)

	for _, pair := range [][]string{{first, second}, {first, third}} {
		_, err := runCLI(t, "render", pair[0], pair[1], "-o", out, "--ticks", "10")
		assert.ErrorContains(t, err, "would both write fund.svg")
	}
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "nothing should be rendered on a clash")
}

func TestBatchOutputNames(t *testing.T) {
	names, err := batchOutputNames([]string{"a/fund.yaml", "b/health.json"}, formatLayout)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a/fund.yaml":   "fund.layout.json",
		"b/health.json": "health.layout.json",
	}, names)

	_, err = batchOutputNames([]string{"a/fund.yaml", "b/fund.yaml"}, formatPNG)
	assert.ErrorContains(t, err, "a/fund.yaml and b/fund.yaml would both write fund.png")
}
