package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	root := t.TempDir()
	binaryPath := buildBinary(t)

	sharedDir := filepath.Join(root, ".personamux")
	require.NoError(t, os.MkdirAll(sharedDir, 0o700))

	// A session name derived from the temp dir keeps 'stop' away from any
	// real tmux session.
	configBody := "[tmux]\nsession = \"smoke-" + filepath.Base(root) + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(sharedDir, "config.toml"), []byte(configBody), 0o600))

	_, stderr, err := runCLI(t, binaryPath,
		"--root", root,
		"set-status", "impl", "working", "wiring the session store",
	)
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runCLI(t, binaryPath, "--root", root, "status", "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, `"working"`)
	assert.Contains(t, stdout, "wiring the session store")

	stdout, stderr, err = runCLI(t, binaryPath, "--root", root, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Implementation Engineer")
	assert.Contains(t, stdout, "Project Manager")

	stdout, stderr, err = runCLI(t, binaryPath, "--root", root, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.NotEmpty(t, stdout)

	// stop with nothing running must be a no-op, not a failure. A fake
	// tmux session name nothing else uses keeps this hermetic.
	_, stderr, err = runCLI(t, binaryPath, "--root", root, "stop")
	if err != nil {
		// Environments without tmux fail the session probe; that is the
		// only acceptable failure here.
		assert.Contains(t, stderr, "tmux")
	}
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "personamux-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/personamux")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build personamux binary: %s", string(output))
	return binaryPath
}

func runCLI(t *testing.T, binaryPath string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = os.Environ()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
