package cron

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Dispatch 记录一次派发的结果
type Dispatch struct {
	Job   *Job
	RunID string
	PID   int
	At    time.Time
	Err   error
}

// loop 每个周期评估一次全部任务
// 等待从本轮评估结束后开始计时，因此触发时刻不与整分钟对齐
func (c *Cron) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.Evaluate(ctx, c.clock.Now())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.tick):
		}
	}
}

// Evaluate 用同一时刻 now 评估全部任务，并按文件顺序派发所有匹配项
// 同一任务上一轮启动的进程是否仍在运行不影响本轮派发
func (c *Cron) Evaluate(ctx context.Context, now time.Time) []Dispatch {
	matched := c.jobs.Match(now)
	if len(matched) == 0 {
		c.logger.Debugf("No job matches %s", now.Format(time.RFC3339))
		return nil
	}

	dispatches := make([]Dispatch, 0, len(matched))
	for _, job := range matched {
		dispatches = append(dispatches, c.dispatch(ctx, job, now))
	}
	return dispatches
}

// dispatch 把单个任务交给执行器，失败只记录，不影响其它任务
func (c *Cron) dispatch(ctx context.Context, job *Job, now time.Time) Dispatch {
	d := Dispatch{Job: job, RunID: uuid.NewString(), At: now}
	log := withFields(c.logger, "job", job.ID(), "run_id", d.RunID)

	d.PID, d.Err = c.runner.Run(ctx, job)
	switch {
	case d.Err == nil:
		log.Infof("Started %q, process ID is %d", job.Command, d.PID)
		c.monitor.recordDispatch(job.Line, d.RunID, d.PID, now)
	case errors.Is(d.Err, ErrOverlap):
		log.Warnf("Skipped %q: %v", job.Command, d.Err)
		c.monitor.recordSkip(job.Line)
	default:
		log.Errorf("Failed to spawn process: %v", d.Err)
		c.monitor.recordFailure(job.Line, d.RunID, d.Err, now)
	}
	return d
}
