package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const scanSource = `"""Scan a target for open ports."""
import argparse

parser = argparse.ArgumentParser()
parser.add_argument("--target", required=True, help="Host to scan")
`

func scriptsDir(t *testing.T) string {
	t.Helper()

	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	root := t.TempDir()
	path := filepath.Join(root, "net", "scan.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(scanSource), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "net", "README.md"), []byte("Network tools\n"), 0o600))
	return root
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCatalogCmd_JSON(t *testing.T) {
	root := scriptsDir(t)

	out, _, err := execute(t, "", "catalog", "--scripts", root, "--no-history", "--format", "json")
	require.NoError(t, err)

	var doc catalogDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 1, doc.Total)
	require.Len(t, doc.Modules, 1)
	assert.Equal(t, "Network tools", doc.Modules[0].Description)
	require.Len(t, doc.Modules[0].Tools, 1)

	tool := doc.Modules[0].Tools[0]
	assert.Equal(t, "scan", tool.Name)
	assert.Equal(t, "Scan a target for open ports.", tool.Description)
	require.Len(t, tool.Options, 1)
	assert.Equal(t, "target", tool.Options[0].Key)
	assert.True(t, tool.Options[0].Required)
}

func TestCatalogCmd_YAML(t *testing.T) {
	root := scriptsDir(t)

	out, _, err := execute(t, "", "catalog", "--scripts", root, "--no-history")
	require.NoError(t, err)

	var doc catalogDocument
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 1, doc.Total)
	assert.Contains(t, out, "key: target")
}

func TestCatalogCmd_Errors(t *testing.T) {
	root := scriptsDir(t)

	_, _, err := execute(t, "", "catalog", "--scripts", root, "--no-history", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, _, err = execute(t, "", "catalog", "--scripts", filepath.Join(root, "missing"), "--no-history")
	assert.ErrorContains(t, err, "scripts directory not found")
}

func TestConsoleCmd_Script(t *testing.T) {
	root := scriptsDir(t)

	out, stderr, err := execute(t, "list\nuse net/scan\nshow options\nrun\nexit\n", "--scripts", root, "--no-history")
	require.NoError(t, err)
	assert.Contains(t, out, "[0] scan - Scan a target for open ports.")
	assert.Contains(t, out, "target")
	assert.Contains(t, stderr, "missing required options: target")
}

func TestConsoleCmd_MissingScriptsDir(t *testing.T) {
	root := scriptsDir(t)

	_, stderr, err := execute(t, "list\n", "console", "--scripts", filepath.Join(root, "missing"), "--no-history")
	require.NoError(t, err)
	assert.Contains(t, stderr, "scripts directory not found")
}

func TestConsoleCmd_History(t *testing.T) {
	root := scriptsDir(t)
	db := filepath.Join(t.TempDir(), "state", "history.db")

	_, _, err := execute(t, "history\n", "console", "--scripts", root, "--db", db)
	require.NoError(t, err)
	assert.FileExists(t, db)
}

func TestInvalidConfig(t *testing.T) {
	root := scriptsDir(t)

	_, _, err := execute(t, "", "catalog", "--scripts", root, "--mode", "loud")
	assert.ErrorContains(t, err, "invalid config")
}

func TestWatchInterrupts_StopReleasesWatcher(t *testing.T) {
	for i := 0; i < 3; i++ {
		stop := watchInterrupts(zerolog.Nop())

		stopped := make(chan struct{})
		go func() {
			stop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Fatal("interrupt watcher did not exit after stop")
		}
	}
}
