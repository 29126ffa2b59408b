package cron

import (
	"sync"
	"time"
)

// Stats 任务派发统计信息
type Stats struct {
	ID            string    `json:"id"`             // 任务ID
	Line          int       `json:"line"`           // 所在行号
	Schedule      string    `json:"schedule"`       // 调度表达式
	Command       string    `json:"command"`        // 执行命令
	DispatchCount int64     `json:"dispatch_count"` // 成功派发次数
	FailureCount  int64     `json:"failure_count"`  // 派发失败次数
	SkipCount     int64     `json:"skip_count"`     // 因并发上限跳过的次数
	LastPID       int       `json:"last_pid"`       // 最近一次派发的进程号
	LastRunID     string    `json:"last_run_id"`    // 最近一次派发的运行ID
	LastRun       time.Time `json:"last_run"`       // 最近一次派发时间
	LastError     string    `json:"last_error"`     // 最近一次失败原因
	CreatedAt     time.Time `json:"created_at"`     // 加载时间
}

// Monitor 任务监控器
type Monitor struct {
	stats map[int]*Stats
	mu    sync.RWMutex
}

// newMonitor 创建新的任务监控器
func newMonitor() *Monitor {
	return &Monitor{
		stats: make(map[int]*Stats),
	}
}

// addJob 添加任务到监控
func (m *Monitor) addJob(job *Job, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats[job.Line] = &Stats{
		ID:        job.ID(),
		Line:      job.Line,
		Schedule:  job.Spec,
		Command:   job.Command,
		CreatedAt: createdAt,
	}
}

// recordDispatch 记录一次成功派发
func (m *Monitor) recordDispatch(line int, runID string, pid int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.stats[line]
	if !exists {
		return
	}

	stats.DispatchCount++
	stats.LastPID = pid
	stats.LastRunID = runID
	stats.LastRun = at
}

// recordFailure 记录一次失败的派发
func (m *Monitor) recordFailure(line int, runID string, err error, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.stats[line]
	if !exists {
		return
	}

	stats.FailureCount++
	stats.LastRunID = runID
	stats.LastRun = at
	if err != nil {
		stats.LastError = err.Error()
	}
}

// recordSkip 记录一次因并发上限跳过的派发
func (m *Monitor) recordSkip(line int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stats, exists := m.stats[line]; exists {
		stats.SkipCount++
	}
}

// GetStats 获取指定行任务的统计信息
func (m *Monitor) GetStats(line int) (*Stats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, exists := m.stats[line]
	if !exists {
		return nil, false
	}

	statsCopy := *stats
	return &statsCopy, true
}

// GetAllStats 获取所有任务的统计信息
func (m *Monitor) GetAllStats() map[int]*Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[int]*Stats, len(m.stats))
	for line, stats := range m.stats {
		statsCopy := *stats
		result[line] = &statsCopy
	}

	return result
}
