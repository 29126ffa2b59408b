package cron

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/darkit/docker-cron/internal/parser"
)

// 任务行解析错误
var (
	// ErrBlankLine 空行或仅包含注释的行
	ErrBlankLine = errors.New("blank line")

	// ErrTooFewFields 行内字段不足（5 个时间字段 + 命令）
	ErrTooFewFields = errors.New("too few fields")

	// ErrEmptyCommand 命令为空
	ErrEmptyCommand = errors.New("empty command")
)

// commentMarker 行内注释起始符，其后内容全部忽略
const commentMarker = "#"

// Job 表示 crontab 文件中的一行任务
// 加载后不可变，整个进程生命周期内存在
type Job struct {
	Line     int             // 所在行号，从 1 开始
	Spec     string          // 原始的 5 个时间字段
	Schedule parser.Schedule // 解析后的时间约束
	Command  string          // 交给 shell 执行的命令
}

// ParseJob 将一行文本解析为任务
// 行内 # 之后的内容视为注释被丢弃，前 5 个字段为时间规则，
// 其余字段以单个空格重新拼接为命令
func ParseJob(line string, lineNo int) (*Job, error) {
	if i := strings.Index(line, commentMarker); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	switch {
	case len(fields) == 0:
		return nil, ErrBlankLine
	case len(fields) <= parser.FieldCount:
		return nil, fmt.Errorf("%w: expected %d time fields and a command, got %d fields",
			ErrTooFewFields, parser.FieldCount, len(fields))
	}

	command := strings.TrimSpace(strings.Join(fields[parser.FieldCount:], " "))
	if command == "" {
		return nil, ErrEmptyCommand
	}

	schedule, err := parser.ParseFields(fields[:parser.FieldCount])
	if err != nil {
		return nil, err
	}

	return &Job{
		Line:     lineNo,
		Spec:     strings.Join(fields[:parser.FieldCount], " "),
		Schedule: schedule,
		Command:  command,
	}, nil
}

// ID 返回任务标识，用于日志与监控
func (j *Job) ID() string {
	return fmt.Sprintf("line-%d", j.Line)
}

// Matches 检查任务是否应在 now 时刻执行
func (j *Job) Matches(now time.Time) bool {
	return j.Schedule.Matches(now)
}

// NextRun 返回 after 之后的下一次执行时间
func (j *Job) NextRun(after time.Time) (time.Time, error) {
	return j.Schedule.Next(after)
}

func (j *Job) String() string {
	return fmt.Sprintf("%s %s", j.Spec, j.Command)
}

// JobSet 按文件顺序保存的任务集合，构造后只读
type JobSet struct {
	jobs []*Job
}

// NewJobSet 使用给定任务构造集合
func NewJobSet(jobs ...*Job) *JobSet {
	set := &JobSet{jobs: make([]*Job, 0, len(jobs))}
	for _, j := range jobs {
		if j != nil {
			set.jobs = append(set.jobs, j)
		}
	}
	return set
}

// Len 返回任务数量
func (s *JobSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.jobs)
}

// Jobs 返回任务列表的拷贝
func (s *JobSet) Jobs() []*Job {
	if s == nil {
		return nil
	}
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	return jobs
}

// Get 按行号查找任务
func (s *JobSet) Get(line int) (*Job, bool) {
	for _, j := range s.Jobs() {
		if j.Line == line {
			return j, true
		}
	}
	return nil, false
}

// Match 返回在 now 时刻匹配的全部任务，保持文件顺序
func (s *JobSet) Match(now time.Time) []*Job {
	var matched []*Job
	for _, j := range s.Jobs() {
		if j.Matches(now) {
			matched = append(matched, j)
		}
	}
	return matched
}

// LineError 记录某一行解析失败的原因
type LineError struct {
	Line int    // 行号
	Text string // 原始文本
	Err  error  // 失败原因
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// LineErrors 拆分 Load 返回的聚合错误
func LineErrors(err error) []*LineError {
	var lineErrs []*LineError
	for _, e := range multierr.Errors(err) {
		var le *LineError
		if errors.As(e, &le) {
			lineErrs = append(lineErrs, le)
		}
	}
	return lineErrs
}

// FatalLoadError 返回聚合错误中第一个不属于单行解析失败的错误
func FatalLoadError(err error) error {
	for _, e := range multierr.Errors(err) {
		var le *LineError
		if !errors.As(e, &le) {
			return e
		}
	}
	return nil
}

// Load 逐行读取 crontab 内容并构造任务集合
// 单行解析失败不会中断加载：失败行被跳过，所有 *LineError 通过 multierr 聚合返回。
// 行长度不受限制。返回的集合总是非 nil；读取本身失败时聚合错误中会多出一个
// 非 *LineError 的错误，可用 FatalLoadError 取出。
func Load(r io.Reader) (*JobSet, error) {
	var (
		jobs    []*Job
		lineErr error
		lineNo  int
	)

	reader := bufio.NewReader(r)
	for {
		text, readErr := reader.ReadString('\n')
		if text != "" {
			lineNo++
			text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")

			job, err := ParseJob(text, lineNo)
			if err != nil {
				lineErr = multierr.Append(lineErr, &LineError{Line: lineNo, Text: text, Err: err})
			} else {
				jobs = append(jobs, job)
			}
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				lineErr = multierr.Append(lineErr, fmt.Errorf("read crontab: %w", readErr))
			}
			break
		}
	}

	return NewJobSet(jobs...), lineErr
}

// LoadFile 打开并加载 crontab 文件
func LoadFile(path string) (*JobSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open crontab: %w", err)
	}
	defer f.Close()

	return Load(f)
}
