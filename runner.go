package cron

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"
)

// DefaultShell 默认用于执行命令的 shell
const DefaultShell = "bash"

// ErrOverlap 任务已达到并发上限，本次派发被跳过
var ErrOverlap = errors.New("job still running")

// Runner 执行匹配的任务命令
// Run 只负责派发，不等待命令结束，返回子进程 PID
type Runner interface {
	Run(ctx context.Context, job *Job) (pid int, err error)
}

// SpawnError 表示操作系统未能创建子进程
type SpawnError struct {
	Shell   string
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s -c %q: %v", e.Shell, e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ShellRunner 以 `<shell> -c <command>` 启动独立子进程
// 标准输入输出继承自父进程，不捕获输出，不等待结束
type ShellRunner struct {
	Shell  string    // 为空时使用 DefaultShell
	Stdout io.Writer // 为空时继承 os.Stdout
	Stderr io.Writer // 为空时继承 os.Stderr
	logger Logger
}

// NewShellRunner 创建 shell 执行器
func NewShellRunner(shell string, logger Logger) *ShellRunner {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &ShellRunner{Shell: shell, logger: logger}
}

// Run 启动命令后立即返回
// 后台协程负责回收子进程，退出状态只写入调试日志
func (r *ShellRunner) Run(_ context.Context, job *Job) (int, error) {
	cmd, err := r.start(job.Command, false)
	if err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		r.log().Debugf("Job %s process %d exited: %v", job.ID(), pid, exitDescription(err))
	}()

	return pid, nil
}

func (r *ShellRunner) shell() string {
	if r.Shell == "" {
		return DefaultShell
	}
	return r.Shell
}

func (r *ShellRunner) log() Logger {
	if r.logger == nil {
		return &NoOpLogger{}
	}
	return r.logger
}

// start 创建并启动子进程，group 为 true 时放入独立进程组
func (r *ShellRunner) start(command string, group bool) (*exec.Cmd, error) {
	shell := r.shell()

	cmd := exec.Command(shell, "-c", command)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if group {
		setProcessGroup(cmd)
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Shell: shell, Command: command, Err: err}
	}
	return cmd, nil
}

func exitDescription(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}

// SupervisedRunner 在 ShellRunner 之上增加进程跟踪、并发上限与超时
//
// MaxConcurrent > 0 时，同一任务运行中的实例达到上限后新的派发会以 ErrOverlap 被跳过；
// Timeout > 0 时，超时的子进程连同其进程组会被强制结束。
type SupervisedRunner struct {
	shell         *ShellRunner
	MaxConcurrent int
	Timeout       time.Duration

	mu      sync.Mutex
	running map[int]map[int]struct{} // 行号 -> 运行中的 PID
	wg      sync.WaitGroup
}

// NewSupervisedRunner 创建带监管的执行器
func NewSupervisedRunner(shell *ShellRunner, maxConcurrent int, timeout time.Duration) *SupervisedRunner {
	if shell == nil {
		shell = NewShellRunner(DefaultShell, nil)
	}
	return &SupervisedRunner{
		shell:         shell,
		MaxConcurrent: maxConcurrent,
		Timeout:       timeout,
		running:       make(map[int]map[int]struct{}),
	}
}

// Run 在并发上限内启动命令
func (r *SupervisedRunner) Run(_ context.Context, job *Job) (int, error) {
	r.mu.Lock()
	if r.MaxConcurrent > 0 && len(r.running[job.Line]) >= r.MaxConcurrent {
		n := len(r.running[job.Line])
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s has %d running instance(s), limit %d", ErrOverlap, job.ID(), n, r.MaxConcurrent)
	}

	cmd, err := r.shell.start(job.Command, true)
	if err != nil {
		r.mu.Unlock()
		return 0, err
	}

	pid := cmd.Process.Pid
	if r.running[job.Line] == nil {
		r.running[job.Line] = make(map[int]struct{})
	}
	r.running[job.Line][pid] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.supervise(job, cmd)
	return pid, nil
}

// supervise 等待子进程结束，超时则结束整个进程组
func (r *SupervisedRunner) supervise(job *Job, cmd *exec.Cmd) {
	defer r.wg.Done()
	pid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timeout <-chan time.Time
	if r.Timeout > 0 {
		timer := time.NewTimer(r.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var err error
	select {
	case err = <-done:
	case <-timeout:
		r.shell.log().Warnf("Job %s process %d exceeded timeout %s, killing", job.ID(), pid, r.Timeout)
		if killErr := killProcessGroup(cmd); killErr != nil {
			r.shell.log().Errorf("Job %s failed to kill process %d: %v", job.ID(), pid, killErr)
		}
		err = <-done
	}
	r.shell.log().Debugf("Job %s process %d exited: %v", job.ID(), pid, exitDescription(err))

	r.mu.Lock()
	delete(r.running[job.Line], pid)
	if len(r.running[job.Line]) == 0 {
		delete(r.running, job.Line)
	}
	r.mu.Unlock()
}

// Running 返回指定任务当前运行中的 PID，按升序排列
func (r *SupervisedRunner) Running(line int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	pids := make([]int, 0, len(r.running[line]))
	for pid := range r.running[line] {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Wait 等待所有已派发的子进程结束（或被超时结束）
func (r *SupervisedRunner) Wait() {
	r.wg.Wait()
}
