package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	f()
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestRootCmd_Version(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs([]string{}) })
	rootCmd.SetArgs([]string{"version"})
	out := captureOutput(func() { _ = rootCmd.Execute() })
	assert.Contains(t, out, "apiserver version v")
}

func TestRootCmd_Help(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs([]string{}) })
	rootCmd.SetArgs([]string{"--help"})
	require.NoError(t, rootCmd.Execute())
}

func TestExecutorCmd_Once(t *testing.T) {
	t.Cleanup(func() {
		rootCmd.SetArgs([]string{})
		runOnce = false
		configPath = "apiserver.yaml"
	})
	rootCmd.SetArgs([]string{"executor", "--once", "--conf", writeConfig(t, "")})
	assert.NoError(t, rootCmd.Execute())
}
