package cron

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// ErrRunnerPanic 执行器在派发时发生 panic
var ErrRunnerPanic = errors.New("runner panicked")

// PanicHandler 定义panic处理器接口
type PanicHandler interface {
	HandlePanic(jobID string, panicValue interface{}, stack []byte)
}

// DefaultPanicHandler 默认的panic处理器
type DefaultPanicHandler struct {
	logger Logger
}

// NewDefaultPanicHandler 创建默认panic处理器
func NewDefaultPanicHandler(logger Logger) *DefaultPanicHandler {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &DefaultPanicHandler{logger: logger}
}

// HandlePanic 默认的panic处理实现
func (h *DefaultPanicHandler) HandlePanic(jobID string, panicValue interface{}, stack []byte) {
	if h.logger != nil {
		h.logger.Errorf("PANIC while dispatching %s: %v\nStack trace:\n%s", jobID, panicValue, stack)
	}
}

// SafeCall 安全调用函数，捕获并处理panic
func SafeCall(jobID string, fn func(), handler PanicHandler) (recovered bool) {
	defer func() {
		if r := recover(); r != nil {
			recovered = true

			// 获取堆栈信息
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)

			if handler == nil {
				handler = NewDefaultPanicHandler(nil)
			}
			handler.HandlePanic(jobID, r, stack[:n])
		}
	}()

	fn()
	return false
}

// RecoveryRunner 带异常恢复的Runner包装器
// 自定义执行器的 panic 被转换为 ErrRunnerPanic，调度循环继续运行
type RecoveryRunner struct {
	runner       Runner
	panicHandler PanicHandler
}

// NewRecoveryRunner 包装执行器
func NewRecoveryRunner(runner Runner, handler PanicHandler) *RecoveryRunner {
	return &RecoveryRunner{runner: runner, panicHandler: handler}
}

// Run 实现Runner接口，添加异常捕获
func (r *RecoveryRunner) Run(ctx context.Context, job *Job) (int, error) {
	var (
		pid int
		err error
	)

	recovered := SafeCall(job.ID(), func() {
		pid, err = r.runner.Run(ctx, job)
	}, r.panicHandler)

	if recovered {
		return 0, fmt.Errorf("%w: %s", ErrRunnerPanic, job.ID())
	}

	return pid, err
}
