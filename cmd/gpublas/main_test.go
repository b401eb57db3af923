package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScaleCommand(t *testing.T) {
	out, err := execute(t, "scale", "--backend", "software", "--a", "2", "0", "1", "2", "3", "4")
	require.NoError(t, err)
	assert.Equal(t, "[0 2 4 6 8]\n", out)

	_, err = execute(t, "scale", "--backend", "software", "1", "-2")
	assert.Error(t, err)
}

func TestAxpyCommand(t *testing.T) {
	out, err := execute(t, "axpy", "--backend", "software", "--a", "2", "--x", "5,6,7,8,9", "--y", "0, 1, 2, 3, 4")
	require.NoError(t, err)
	assert.Equal(t, "[10 13 16 19 22]\n", out)

	_, err = execute(t, "axpy", "--backend", "software", "--x", "1,2", "--y", "1")
	assert.ErrorContains(t, err, "length mismatch")
}

func TestKernelsCommand(t *testing.T) {
	out, err := execute(t, "kernels")
	require.NoError(t, err)
	assert.Contains(t, out, "Level 1:")
	assert.Contains(t, out, "saxpy")
	assert.Contains(t, out, "axpy/v1")
	assert.Contains(t, out, "sgemm")

	out, err = execute(t, "kernels", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ scale/v1")
	assert.Contains(t, out, "✅ axpy/v1")
}

func TestDevicesCommand(t *testing.T) {
	out, err := execute(t, "devices", "--backend", "software")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend:        software")
	assert.Contains(t, out, "1.0 GiB")
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpublas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: software\nmemory_limit_mb: 2\n"), 0o600))

	out, err := execute(t, "devices", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2.0 MiB")

	_, err = execute(t, "devices", "--config", path, "--backend", "quantum")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestBenchCommand(t *testing.T) {
	out, err := execute(t, "bench", "--backend", "software", "--n", "1000", "--iterations", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "scale")
	assert.Contains(t, out, "axpy")
	assert.Contains(t, out, "Dispatches:  4")

	_, err = execute(t, "bench", "--iterations", "0")
	assert.Error(t, err)
}

func TestLatencyHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	newLatencyHistogram(reg).WithLabelValues("scale").Observe(0.001)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "gpublas_bench_call_seconds", families[0].GetName())
	assert.Equal(t, "Wall time of one Scale/Axpy call, upload to read-back.", families[0].GetHelp())
}
