package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runReplay(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReplay(t *testing.T) {
	out, err := runReplay(t,
		"--dir", "../../pkg/firmware/testdata/dir.txt",
		"--startup", "../../pkg/firmware/testdata/startup.txt")
	require.NoError(t, err)

	assert.Contains(t, out, "current system  CE5855EI-V200R019C10SPC800.cc\n")
	assert.Contains(t, out, "next patch      NONE\n")
	assert.Contains(t, out, "  keep   CE5855EI-V200R019SPH015.PAT\n")
	assert.Contains(t, out, "  delete CE5855EI-V200R002SPH006.PAT\n")
	assert.NotContains(t, out, "delete CE5855EI-V200R019C10SPC800.cc")
}

func TestReplay_MalformedStartup(t *testing.T) {
	_, err := runReplay(t,
		"--dir", "../../pkg/firmware/testdata/dir.txt",
		"--startup", "../../pkg/firmware/testdata/startup-no-system.txt")

	assert.Error(t, err)
}

func TestReplay_MissingFile(t *testing.T) {
	_, err := runReplay(t,
		"--dir", "testdata/missing.txt",
		"--startup", "../../pkg/firmware/testdata/startup.txt")

	assert.Error(t, err)
}
