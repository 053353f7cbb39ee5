package broadcaster_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/broadcaster"
	"github.com/rlch/broadcaster/destination"
	"github.com/rlch/broadcaster/model"
)

const sampleConfig = `
report: out/report.json
log: out/events.jsonl
project:
  name: demo
  version: 1.2.0
destinations:
  - kind: webhook
    url: https://ci.example.com/hook
    events: true
    timeout: 5s
    headers:
      Authorization: Bearer token
  - kind: jsonl
    path: out/failures.jsonl
    filter: 'event_type == "case_finished" && outcome == "failed"'
`

func TestLoadConfig_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".broadcaster.yaml"), []byte(sampleConfig), 0o644))

	nested := filepath.Join(root, "tests", "unit")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := broadcaster.FindConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".broadcaster.yaml"), path)

	cfg, err := broadcaster.LoadConfig(nested)
	require.NoError(t, err)

	events := true
	want := &broadcaster.Config{
		Report:  "out/report.json",
		Log:     "out/events.jsonl",
		Project: &broadcaster.ProjectConfig{Name: "demo", Version: "1.2.0"},
		Destinations: []destination.Config{
			{
				Kind:    "webhook",
				URL:     "https://ci.example.com/hook",
				Events:  &events,
				Timeout: 5 * time.Second,
				Headers: map[string]string{"Authorization": "Bearer token"},
			},
			{
				Kind:   "jsonl",
				Path:   "out/failures.jsonl",
				Filter: `event_type == "case_finished" && outcome == "failed"`,
			},
		},
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, &model.Project{Name: "demo", Version: "1.2.0"}, cfg.ProjectInfo())
}

func TestFindConfig_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// A directory with a config name is not a config file.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "broadcaster.yml"), 0o755))

	_, err := broadcaster.FindConfig(filepath.Join(dir, "broadcaster.yml"))
	if err == nil {
		t.Skip("a config file exists above the temp directory")
	}

	require.ErrorIs(t, err, broadcaster.ErrConfigNotFound)
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("report: [unterminated"), 0o644))

	_, err := broadcaster.LoadConfigFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)

	noKind := filepath.Join(dir, "nokind.yaml")
	require.NoError(t, os.WriteFile(noKind, []byte("destinations:\n  - path: x.json\n"), 0o644))

	_, err = broadcaster.LoadConfigFile(noKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destination 0 has no kind")

	_, err = broadcaster.LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		broadcaster.EnvReport:  "env/report.json",
		broadcaster.EnvWebhook: "https://hooks.example.com/x",
		broadcaster.EnvLog:     "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]

		return v, ok
	}

	cfg := &broadcaster.Config{Report: "file/report.json", Log: "file/events.jsonl"}
	cfg.ApplyEnv(lookup)

	assert.Equal(t, "env/report.json", cfg.Report)
	assert.Equal(t, "file/events.jsonl", cfg.Log, "empty variables are ignored")

	assert.Equal(t, []destination.Config{
		{Kind: destination.KindJSON, Path: "env/report.json"},
		{Kind: destination.KindJSONL, Path: "file/events.jsonl"},
		{Kind: destination.KindWebhook, URL: "https://hooks.example.com/x"},
	}, cfg.AllDestinations())
}

func TestConfig_Empty(t *testing.T) {
	t.Parallel()

	var cfg broadcaster.Config

	assert.Empty(t, cfg.AllDestinations())
	assert.Nil(t, cfg.ProjectInfo())
}
