package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestExportCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "forecast.csv")
	require.NoError(t, run(t, "export-csv", "-o", out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 25)
	assert.True(t, strings.HasPrefix(lines[0], "hour,solar (kW)"))
}

func TestFlowSVG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "flow.svg")
	require.NoError(t, run(t, "flow-svg", "--seed=3", "--ticks=5", "-o", out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stroke-dashoffset")
}

func TestReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, run(t, "report", "-o", out))
	assert.FileExists(t, out)
}

func TestBadConfig(t *testing.T) {
	assert.Error(t, run(t, "export-csv", "--interval=-1s"))
	assert.Error(t, run(t, "export-csv", "extra"))
}
