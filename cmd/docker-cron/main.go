// docker-cron runs the commands of a crontab file on schedule. It is meant
// to be the single long-running process of a container.
//
// Usage:
//
//	docker-cron [flags] <crontab-file>
//
// Every line of the file holds five cron fields followed by a command.
// Lines that fail to parse are reported and skipped; the remaining jobs
// are checked once per tick and matching commands are started with
// `<shell> -c`. The process runs until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	cron "github.com/darkit/docker-cron"
	"github.com/darkit/docker-cron/internal/config"
)

// Exit statuses. exitUsage follows sysexits.h EX_USAGE.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 64
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath    string
	shell         string
	tick          time.Duration
	logLevel      string
	logFormat     string
	maxConcurrent int
	timeout       time.Duration
	check         bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options

	flagSet := pflag.NewFlagSet("docker-cron", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "YAML settings file (default: $"+config.EnvConfigPath+")")
	flagSet.StringVar(&opts.shell, "shell", "", "shell used to run commands (default: bash)")
	flagSet.DurationVar(&opts.tick, "tick", 0, "pause between two evaluation passes (default: 1m)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default: info)")
	flagSet.StringVar(&opts.logFormat, "log-format", "", "console or json (default: console)")
	flagSet.IntVar(&opts.maxConcurrent, "max-concurrent", 0, "skip a job while this many of its instances run (0: unlimited)")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "kill a command after this long (0: never)")
	flagSet.BoolVar(&opts.check, "check", false, "parse the file, print each job and its next run, then exit")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		printUsage(stderr, flagSet)
		return exitUsage
	}
	if help, _ := flagSet.GetBool("help"); help {
		printUsage(stderr, flagSet)
		return exitOK
	}

	switch flagSet.NArg() {
	case 1:
	case 0:
		fmt.Fprintln(stderr, "error: pass a crontab file as argument")
		printUsage(stderr, flagSet)
		return exitUsage
	default:
		fmt.Fprintln(stderr, "error: more than one argument is not allowed")
		printUsage(stderr, flagSet)
		return exitUsage
	}

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	applyFlags(cfg, flagSet, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	logger, err := cron.NewZapLoggerTo(stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	defer logger.Sync() //nolint:errcheck

	path := flagSet.Arg(0)
	logger.Infof("Using crontab %s", path)

	jobs, err := cron.LoadFile(path)
	if fatal := cron.FatalLoadError(err); fatal != nil {
		logger.Errorf("Failed to load crontab: %v", fatal)
		return exitFailure
	}
	lineErrs := cron.LineErrors(err)
	report(logger, jobs, lineErrs, time.Now())

	if opts.check {
		if countRejected(lineErrs) > 0 {
			return exitFailure
		}
		return exitOK
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New(jobs,
		cron.WithLogger(logger),
		cron.WithRunner(newRunner(cfg, logger)),
		cron.WithTick(cfg.Tick),
	)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Scheduler stopped: %v", err)
		return exitFailure
	}
	return exitOK
}

// applyFlags overrides config values with the flags given explicitly.
func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet, opts options) {
	if flagSet.Changed("shell") {
		cfg.Shell = opts.shell
	}
	if flagSet.Changed("tick") {
		cfg.Tick = opts.tick
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flagSet.Changed("max-concurrent") {
		cfg.Supervise.MaxConcurrent = opts.maxConcurrent
	}
	if flagSet.Changed("timeout") {
		cfg.Supervise.Timeout = opts.timeout
	}
}

func newRunner(cfg *config.Config, logger cron.Logger) cron.Runner {
	shell := cron.NewShellRunner(cfg.Shell, logger)
	if !cfg.Supervise.Enabled() {
		return shell
	}
	return cron.NewSupervisedRunner(shell, cfg.Supervise.MaxConcurrent, cfg.Supervise.Timeout)
}

// report prints the load result: one line per rejected line and per job.
func report(logger cron.Logger, jobs *cron.JobSet, lineErrs []*cron.LineError, now time.Time) {
	for _, le := range lineErrs {
		if errors.Is(le, cron.ErrBlankLine) {
			logger.Infof("Skipped line %d: %v", le.Line, le.Err)
			continue
		}
		logger.Warnf("Failed to create job from line %d %q: %v", le.Line, le.Text, le.Err)
	}

	for _, job := range jobs.Jobs() {
		next, err := job.NextRun(now)
		if err != nil {
			logger.Warnf("Added job %s: %s (never runs: %v)", job.ID(), job, err)
			continue
		}
		logger.Infof("Added job %s: %s (next run %s)", job.ID(), job, next.Format(time.RFC3339))
	}
	logger.Infof("Loaded %d job(s), rejected %d line(s)", jobs.Len(), countRejected(lineErrs))
}

func countRejected(lineErrs []*cron.LineError) int {
	n := 0
	for _, le := range lineErrs {
		if !errors.Is(le, cron.ErrBlankLine) {
			n++
		}
	}
	return n
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: docker-cron [flags] <crontab-file>

Runs the commands of a crontab file on schedule until interrupted.
Each line holds five fields (minute hour day-of-month month day-of-week)
followed by the command; text after # is ignored.

Flags:
%s`, flagSet.FlagUsages())
}
