package cron

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkit/docker-cron/internal/parser"
)

func TestParseJob(t *testing.T) {
	job, err := ParseJob("*/15 * * * * echo hi", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, job.Line)
	assert.Equal(t, "line-3", job.ID())
	assert.Equal(t, "*/15 * * * *", job.Spec)
	assert.Equal(t, "echo hi", job.Command)
	assert.Equal(t, []int{0, 15, 30, 45}, job.Schedule.Minute.Values())
	assert.True(t, job.Schedule.Hour.Unconstrained())
}

func TestParseJobCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"single word", "0 0 * * * true", "true"},
		{"whitespace collapsed", "0 0 * * *   tar   -czf  /b.tgz\t/data  ", "tar -czf /b.tgz /data"},
		{"inline comment", "0 0 * * * /usr/bin/backup.sh # nightly", "/usr/bin/backup.sh"},
		{"comment glued to command", "0 0 * * * echo a#b", "echo a"},
		{"leading whitespace", "   5 4 * * * run", "run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := ParseJob(tt.line, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, job.Command)
		})
	}
}

func TestParseJobErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ErrBlankLine},
		{"spaces", "   \t ", ErrBlankLine},
		{"comment only", "# 0 0 * * * echo", ErrBlankLine},
		{"schedule only", "* * * * *", ErrTooFewFields},
		{"four fields and command", "* * * * echo", ErrTooFewFields},
		{"command commented out", "* * * * * # echo", ErrTooFewFields},
		{"bad minute", "61 * * * * echo", parser.ErrOutOfRange},
		{"bad hour text", "* x * * * echo", parser.ErrMalformed},
		{"inverted range", "* * 20-10 * * echo", parser.ErrInvertedRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := ParseJob(tt.line, 1)
			assert.Nil(t, job)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseJobIdempotent(t *testing.T) {
	line := "5-40/7 1,2 */3 6- 0 echo twice"
	a, err := ParseJob(line, 1)
	require.NoError(t, err)
	b, err := ParseJob(line, 1)
	require.NoError(t, err)

	assert.True(t, a.Schedule.Equal(b.Schedule))
	assert.Equal(t, a, b)
}

func TestJobMatchesBackupExample(t *testing.T) {
	job, err := ParseJob("30 2 * * * /usr/bin/backup.sh", 1)
	require.NoError(t, err)

	start := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.Local)
	for m := 0; m < 2*24*60; m++ {
		now := start.Add(time.Duration(m) * time.Minute)
		want := now.Hour() == 2 && now.Minute() == 30
		assert.Equal(t, want, job.Matches(now), now.String())
	}
}

func TestJobNextRun(t *testing.T) {
	job, err := ParseJob("30 2 * * * /usr/bin/backup.sh", 1)
	require.NoError(t, err)

	from := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	next, err := job.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 19, 2, 30, 0, 0, time.UTC), next)
}

const sampleCrontab = `# sample crontab
30 2 * * * /usr/bin/backup.sh

*/15 * * * * echo hi # every quarter
61 * * * * echo bad minute
* * * * echo
0 9 * * 1-5 ./report.sh
`

func TestLoad(t *testing.T) {
	set, err := Load(strings.NewReader(sampleCrontab))
	require.NotNil(t, set)
	require.Error(t, err)
	assert.NoError(t, FatalLoadError(err))

	jobs := set.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, []int{2, 4, 7}, []int{jobs[0].Line, jobs[1].Line, jobs[2].Line})
	assert.Equal(t, "/usr/bin/backup.sh", jobs[0].Command)
	assert.Equal(t, "echo hi", jobs[1].Command)
	assert.Equal(t, "./report.sh", jobs[2].Command)

	lineErrs := LineErrors(err)
	require.Len(t, lineErrs, 4)
	assert.Equal(t, []int{1, 3, 5, 6}, []int{lineErrs[0].Line, lineErrs[1].Line, lineErrs[2].Line, lineErrs[3].Line})
	assert.ErrorIs(t, lineErrs[0], ErrBlankLine)
	assert.ErrorIs(t, lineErrs[1], ErrBlankLine)
	assert.ErrorIs(t, lineErrs[2], parser.ErrOutOfRange)
	assert.ErrorIs(t, lineErrs[3], ErrTooFewFields)
	assert.Equal(t, "61 * * * * echo bad minute", lineErrs[2].Text)
	assert.Contains(t, lineErrs[2].Error(), "line 5")
}

func TestLoadClean(t *testing.T) {
	set, err := Load(strings.NewReader("0 0 * * * a\n0 1 * * * b\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.Nil(t, LineErrors(err))
}

func TestLoadEmpty(t *testing.T) {
	set, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestLoadReadError(t *testing.T) {
	set, err := Load(failingReader{})
	require.NotNil(t, set)
	fatal := FatalLoadError(err)
	require.Error(t, fatal)
	assert.Contains(t, fatal.Error(), "disk on fire")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crontab")
	require.NoError(t, os.WriteFile(path, []byte(sampleCrontab), 0o600))

	set, err := LoadFile(path)
	assert.NoError(t, FatalLoadError(err))
	assert.Equal(t, 3, set.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Error(t, FatalLoadError(err))
}

func TestJobSetIsReadOnly(t *testing.T) {
	a, err := ParseJob("0 0 * * * a", 1)
	require.NoError(t, err)
	b, err := ParseJob("0 0 * * * b", 2)
	require.NoError(t, err)

	set := NewJobSet(a, nil, b)
	require.Equal(t, 2, set.Len())

	jobs := set.Jobs()
	jobs[0] = nil
	assert.Equal(t, a, set.Jobs()[0])

	got, ok := set.Get(2)
	assert.True(t, ok)
	assert.Equal(t, b, got)
	_, ok = set.Get(3)
	assert.False(t, ok)
}

func TestJobSetMatchKeepsFileOrder(t *testing.T) {
	set, err := Load(strings.NewReader("* * * * * first\n0 12 * * * noon\n* * * * * last\n"))
	require.NoError(t, err)

	matched := set.Match(time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC))
	require.Len(t, matched, 2)
	assert.Equal(t, "first", matched[0].Command)
	assert.Equal(t, "last", matched[1].Command)
}

func TestNilJobSet(t *testing.T) {
	var set *JobSet
	assert.Equal(t, 0, set.Len())
	assert.Nil(t, set.Jobs())
}

func TestLoadLongLine(t *testing.T) {
	long := "0 0 * * * echo " + strings.Repeat("x", 70000)
	set, err := Load(strings.NewReader("0 0 * * * first\n" + long + "\n0 1 * * * third\n"))
	require.NoError(t, err)

	jobs := set.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, "first", jobs[0].Command)
	assert.Len(t, jobs[1].Command, len("echo ")+70000)
	assert.Equal(t, "third", jobs[2].Command)
	assert.Equal(t, 3, jobs[2].Line)
}

func TestLoadLongBadLine(t *testing.T) {
	long := strings.Repeat("y", 70000)
	set, err := Load(strings.NewReader("0 0 * * * first\n" + long + "\n0 1 * * * third\n"))
	assert.NoError(t, FatalLoadError(err))
	assert.Equal(t, 2, set.Len())

	lineErrs := LineErrors(err)
	require.Len(t, lineErrs, 1)
	assert.Equal(t, 2, lineErrs[0].Line)
}

func TestLoadLineEndings(t *testing.T) {
	set, err := Load(strings.NewReader("0 0 * * * dos\r\n0 1 * * * last"))
	require.NoError(t, err)

	jobs := set.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "dos", jobs[0].Command)
	assert.Equal(t, "last", jobs[1].Command)
	assert.Equal(t, 2, jobs[1].Line)
}

func TestLoadReadErrorKeepsEarlierLines(t *testing.T) {
	r := io.MultiReader(strings.NewReader("0 0 * * * before\n"), failingReader{})
	set, err := Load(r)

	assert.Error(t, FatalLoadError(err))
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "before", set.Jobs()[0].Command)
}
