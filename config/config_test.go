package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/labels"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// inEmptyDir keeps a watt-wealth.yaml in the working directory from leaking
// into tests.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestDefaults(t *testing.T) {
	inEmptyDir(t)
	c, err := Load(New(), newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "", c.Data)
	assert.Equal(t, backend.DefaultInterval, c.Interval)
	assert.Equal(t, labels.DefaultNudge, c.Nudge)
	assert.Equal(t, ":8080", c.Listen)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLayers(t *testing.T) {
	dir := inEmptyDir(t)
	file := filepath.Join(dir, "watt-wealth.yaml")
	require.NoError(t, os.WriteFile(file, []byte("nudge: 20\ninterval: 10s\nlisten: \":9000\"\ndata: mock.yaml\n"), 0o644))

	c, err := Load(New(), newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 20, c.Nudge)
	assert.Equal(t, 10*time.Second, c.Interval)
	assert.Equal(t, "mock.yaml", c.Data)

	t.Setenv("WATTWEALTH_NUDGE", "30")
	t.Setenv("WATTWEALTH_LOG_LEVEL", "debug")
	c, err = Load(New(), newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 30, c.Nudge)
	assert.Equal(t, "debug", c.LogLevel)

	c, err = Load(New(), newFlags(t, "--nudge=40", "--listen=:7000"))
	require.NoError(t, err)
	assert.Equal(t, 40, c.Nudge)
	assert.Equal(t, ":7000", c.Listen)
	assert.Equal(t, 10*time.Second, c.Interval)
}

func TestExplicitConfigFile(t *testing.T) {
	dir := inEmptyDir(t)
	file := filepath.Join(dir, "other.yml")
	require.NoError(t, os.WriteFile(file, []byte("seed: 7\n"), 0o644))
	c, err := Load(New(), newFlags(t, "--config", file))
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Seed)

	_, err = Load(New(), newFlags(t, "--config", filepath.Join(dir, "missing.yml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	inEmptyDir(t)
	_, err := Load(New(), newFlags(t, "--interval=0s"))
	assert.Error(t, err)
	_, err = Load(New(), newFlags(t, "--nudge=-1"))
	assert.Error(t, err)
	_, err = Load(New(), newFlags(t, "--log-level=loud"))
	assert.Error(t, err)
}

func TestConfigureLogging(t *testing.T) {
	prev := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(prev) })
	Config{LogLevel: "warn"}.ConfigureLogging()
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	Config{LogLevel: "nonsense"}.ConfigureLogging()
	assert.Equal(t, log.WarnLevel, log.GetLevel())
}

func TestDatasource(t *testing.T) {
	dir := inEmptyDir(t)
	c := Config{Interval: time.Second, Record: filepath.Join(dir, "trace.csv"), LogLevel: "info"}
	ds, err := c.Datasource()
	require.NoError(t, err)
	assert.Equal(t, time.Second, ds.Interval())
	assert.Equal(t, backend.Fallback().Now.Reading, ds.Latest())
	require.NoError(t, ds.Close())
	assert.FileExists(t, c.Record)
}
