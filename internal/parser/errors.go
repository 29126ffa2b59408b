package parser

import (
	"errors"
	"fmt"
)

// 预定义的错误类型，便于用户处理特定错误情况
var (
	// ErrMalformed 字段文本无法解析
	ErrMalformed = errors.New("malformed cron field")

	// ErrOutOfRange 数值或区间超出字段取值范围
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvertedRange 区间起点大于终点
	ErrInvertedRange = errors.New("inverted range")

	// ErrFieldCount 表达式字段数量不是 5
	ErrFieldCount = errors.New("wrong number of cron fields")

	// ErrNoMatch Next 在搜索窗口内没有找到匹配时间
	ErrNoMatch = errors.New("no matching time found")
)

// ParseError 表示字段中出现了无法解析的文本
type ParseError struct {
	Text   string // 出错的原始文本
	Reason string // 失败原因
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %q: %s", e.Text, e.Reason)
}

// Unwrap 使 errors.Is(err, ErrMalformed) 成立
func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

// RangeError 表示数值或区间违反字段取值范围，或区间倒置
type RangeError struct {
	Low, High int    // 请求的区间，单值时两者相等
	Domain    Domain // 字段取值范围
	Inverted  bool   // 起点大于终点
}

func (e *RangeError) Error() string {
	if e.Inverted {
		return fmt.Sprintf("range [%d, %d] is inverted in %s", e.Low, e.High, e.Domain)
	}
	if e.Low == e.High {
		return fmt.Sprintf("value %d is not in the expected range %s", e.Low, e.Domain)
	}
	return fmt.Sprintf("requested range [%d, %d] is not in the expected range %s", e.Low, e.High, e.Domain)
}

func (e *RangeError) Unwrap() error {
	if e.Inverted {
		return ErrInvertedRange
	}
	return ErrOutOfRange
}

func malformed(text, format string, args ...any) error {
	return &ParseError{Text: text, Reason: fmt.Sprintf(format, args...)}
}
