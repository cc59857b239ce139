package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDemo(t *testing.T) {
	logger = zerolog.Nop()

	var out bytes.Buffer
	require.NoError(t, runDemo(&out))

	want := `add A (medium)
add B (high)
add C (medium)
order: [B A C]
next on empty queue: no task (empty=true)
rejected: taskq.add: invalid priority: priority(99) (size=0)
peek: A (size=1)
peek: A (size=1)
next: A (empty=true)
`
	assert.Equal(t, want, out.String())
}

func TestStressCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: error
workload:
  seed: 3
metrics:
  namespace: clitest
`), 0o644))

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--config", path, "stress", "--producers", "4", "--tasks", "50", "--consumers", "2"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 4, cfg.Workload.Producers)
	assert.Equal(t, 50, cfg.Workload.TasksPerProducer)
	assert.Equal(t, 2, cfg.Workload.Consumers)
	assert.NotContains(t, stderr.String(), "ERR")
}

func TestStressCmd_InvalidFlags(t *testing.T) {
	rootCmd.SetArgs([]string{"--config", "", "stress", "--consumers", "0"})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "consumers")
}
