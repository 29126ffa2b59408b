package cron

import (
	"time"

	"github.com/darkit/docker-cron/internal/clock"
)

// Option 定义创建选项
type Option func(*Cron)

// WithLogger 设置自定义日志接口
func WithLogger(logger Logger) Option {
	return func(c *Cron) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunner 设置命令执行器，默认使用 ShellRunner
//
// 参数：
//   - runner: 实现了 Runner 接口的执行器，例如 SupervisedRunner
func WithRunner(runner Runner) Option {
	return func(c *Cron) {
		c.runner = runner
	}
}

// WithTick 设置两次检查之间的间隔
// 间隔从一次检查结束开始计算，非正值被忽略
func WithTick(tick time.Duration) Option {
	return func(c *Cron) {
		if tick > 0 {
			c.tick = tick
		}
	}
}

// WithClock 设置时间源，测试中用于注入假时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Cron) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithPanicHandler 设置 panic 处理器
//
// 参数：
//   - handler: 实现了 PanicHandler 接口的处理器
func WithPanicHandler(handler PanicHandler) Option {
	return func(c *Cron) {
		c.panicHandler = handler
	}
}
