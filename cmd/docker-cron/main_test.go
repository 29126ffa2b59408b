package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkit/docker-cron/internal/config"
)

func writeCrontab(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crontab")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"no arguments":   {},
		"two arguments":  {"a", "b"},
		"unknown flag":   {"--nope", "a"},
		"flag only":      {"--check"},
		"three operands": {"a", "b", "c"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			code, _, stderr := runCLI(t, args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, "Usage: docker-cron")
		})
	}
}

func TestRunHelp(t *testing.T) {
	code, _, stderr := runCLI(t, "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "--max-concurrent")
}

func TestRunCheckValid(t *testing.T) {
	path := writeCrontab(t, "# nightly backup\n30 2 * * * /usr/bin/backup.sh\n\n*/15 * * * * echo hi # inline\n")

	code, stdout, _ := runCLI(t, "--check", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "line-2")
	assert.Contains(t, stdout, "/usr/bin/backup.sh")
	assert.Contains(t, stdout, "line-4")
	assert.Contains(t, stdout, "Loaded 2 job(s), rejected 0 line(s)")
	assert.Contains(t, stdout, "Skipped line 1: blank line")
	assert.Contains(t, stdout, "Skipped line 3: blank line")
}

func TestRunCheckCommentsOnly(t *testing.T) {
	path := writeCrontab(t, "# header\n\n   \n# 0 0 * * * disabled\n")

	code, stdout, _ := runCLI(t, "--check", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Loaded 0 job(s), rejected 0 line(s)")
}

func TestRunCheckReportsBadLines(t *testing.T) {
	path := writeCrontab(t, "61 * * * * echo bad\n* * * * echo short\n0 0 * * * echo ok\n")

	code, stdout, _ := runCLI(t, "--check", "--log-format", "json", path)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, "line 1")
	assert.Contains(t, stdout, "line 2")
	assert.Contains(t, stdout, "Loaded 1 job(s), rejected 2 line(s)")
}

func TestRunMissingFile(t *testing.T) {
	code, stdout, _ := runCLI(t, "--check", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, "Failed to load crontab")
}

func TestRunInvalidSettings(t *testing.T) {
	path := writeCrontab(t, "0 0 * * * echo ok\n")

	code, _, stderr := runCLI(t, "--log-level", "loud", "--check", path)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "invalid log level")

	code, _, stderr = runCLI(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), path)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "reading config")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	path := writeCrontab(t, "0 0 1 1 * echo never-in-this-test\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- run(ctx, []string{"--tick", "10ms", path}, &stdout, &stderr)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, exitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Shell = "from-file"
	cfg.Tick = 5 * time.Second

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts := options{}
	flagSet.StringVar(&opts.shell, "shell", "", "")
	flagSet.DurationVar(&opts.tick, "tick", 0, "")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "")
	flagSet.StringVar(&opts.logFormat, "log-format", "", "")
	flagSet.IntVar(&opts.maxConcurrent, "max-concurrent", 0, "")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "")
	require.NoError(t, flagSet.Parse([]string{"--shell", "sh", "--max-concurrent", "2"}))

	applyFlags(cfg, flagSet, opts)

	assert.Equal(t, "sh", cfg.Shell)
	assert.Equal(t, 5*time.Second, cfg.Tick, "unset flag must keep file value")
	assert.Equal(t, 2, cfg.Supervise.MaxConcurrent)
	assert.True(t, cfg.Supervise.Enabled())
}
