package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/darkit/docker-cron/internal/clock"
)

// DefaultTick 默认检查间隔
const DefaultTick = time.Minute

// ErrAlreadyRunning 调度器已在运行
var ErrAlreadyRunning = errors.New("scheduler is already running")

// Cron 是一个极简的 cron 守护进程
// 任务集合在构造时传入，之后只读；每个周期用同一时刻评估全部任务并派发匹配项
type Cron struct {
	jobs         *JobSet
	runner       Runner
	clock        clock.Clock
	tick         time.Duration
	logger       Logger
	monitor      *Monitor
	panicHandler PanicHandler

	mu        sync.RWMutex
	running   bool
	startTime time.Time
}

// New 使用任务集合创建调度器
func New(jobs *JobSet, opts ...Option) *Cron {
	if jobs == nil {
		jobs = NewJobSet()
	}

	c := &Cron{
		jobs:   jobs,
		clock:  clock.Real(),
		tick:   DefaultTick,
		logger: NewDefaultLogger(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(c)
	}

	if c.panicHandler == nil {
		c.panicHandler = NewDefaultPanicHandler(c.logger)
	}
	if c.runner == nil {
		c.runner = NewShellRunner(DefaultShell, c.logger)
	}
	c.runner = NewRecoveryRunner(c.runner, c.panicHandler)

	// 默认启用监控
	c.monitor = newMonitor()
	now := c.clock.Now()
	for _, job := range jobs.Jobs() {
		c.monitor.addJob(job, now)
	}

	return c
}

// Jobs 返回调度器持有的任务集合
func (c *Cron) Jobs() *JobSet {
	return c.jobs
}

// Tick 返回检查间隔
func (c *Cron) Tick() time.Duration {
	return c.tick
}

// Run 运行调度循环，直到 ctx 结束
// 返回值总是 ctx.Err() 或 ErrAlreadyRunning
func (c *Cron) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.startTime = c.clock.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.logger.Infof("Starting cron scheduler with %d job(s), checking every %s", c.jobs.Len(), c.tick)
	err := c.loop(ctx)
	c.logger.Infof("Stopping cron scheduler: %v", err)
	return err
}

// IsRunning 检查调度器是否正在运行
func (c *Cron) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.running
}

// Uptime 返回本次运行的时长，未运行时为 0
func (c *Cron) Uptime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.running {
		return 0
	}
	return c.clock.Now().Sub(c.startTime)
}

// GetStats 获取指定行任务的统计信息
func (c *Cron) GetStats(line int) (*Stats, bool) {
	return c.monitor.GetStats(line)
}

// GetAllStats 获取所有任务的统计信息
func (c *Cron) GetAllStats() map[int]*Stats {
	return c.monitor.GetAllStats()
}
