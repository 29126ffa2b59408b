package parser

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Domain is the inclusive range of values legal for one cron field.
type Domain struct {
	Name     string
	Min, Max int
}

// The domains for each field. Day-of-week accepts both 0 and 7 for Sunday.
var (
	Minutes     = Domain{Name: "minute", Min: 0, Max: 59}
	Hours       = Domain{Name: "hour", Min: 0, Max: 23}
	DaysOfMonth = Domain{Name: "day-of-month", Min: 1, Max: 31}
	Months      = Domain{Name: "month", Min: 1, Max: 12}
	DaysOfWeek  = Domain{Name: "day-of-week", Min: 0, Max: 7}
)

const (
	sunday      = 0
	sundayAlias = 7
)

func (d Domain) String() string {
	return fmt.Sprintf("%s [%d, %d]", d.Name, d.Min, d.Max)
}

// Contains reports whether v lies inside the domain.
func (d Domain) Contains(v int) bool {
	return v >= d.Min && v <= d.Max
}

func (d Domain) all() []int {
	values := make([]int, 0, d.Max-d.Min+1)
	for v := d.Min; v <= d.Max; v++ {
		values = append(values, v)
	}
	return values
}

// Field is the constraint a schedule places on one time dimension: either
// unconstrained, or a non-empty list of allowed values.
type Field struct {
	values      []int
	constrained bool
}

// Any returns the unconstrained field.
func Any() Field {
	return Field{}
}

// Allow returns a field constrained to the given values.
func Allow(values ...int) Field {
	return Field{values: slices.Clone(values), constrained: true}
}

// Unconstrained reports whether the field matches every value.
func (f Field) Unconstrained() bool {
	return !f.constrained
}

// Values returns a copy of the allowed values in parse order, or nil when
// the field is unconstrained.
func (f Field) Values() []int {
	return slices.Clone(f.values)
}

// Contains reports whether v satisfies the field.
func (f Field) Contains(v int) bool {
	if !f.constrained {
		return true
	}
	return slices.Contains(f.values, v)
}

// Equal reports whether two fields carry the same constraint.
func (f Field) Equal(other Field) bool {
	return f.constrained == other.constrained && slices.Equal(f.values, other.values)
}

func (f Field) String() string {
	if !f.constrained {
		return "*"
	}
	parts := make([]string, len(f.values))
	for i, v := range f.values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (f Field) clone() Field {
	return Field{values: slices.Clone(f.values), constrained: f.constrained}
}

// ParseField turns the text of one cron field into a Field for domain d.
//
// Supported syntax, combinable with commas:
//   - "*": unconstrained (only as the whole field; inside a list or with a
//     step it means the whole domain)
//   - "a": a single value
//   - "a-b", "-b", "a-": an inclusive range, a missing side defaults to the
//     domain bound
//   - "<base>/n": every n-th element of base by position, starting with the
//     first, e.g. "10-20/3" selects 10, 13, 16, 19
//
// Results are memoized; see cache.go.
func ParseField(text string, d Domain) (Field, error) {
	return fieldCache.parse(text, d)
}

// ParseDayOfWeek parses a day-of-week field. When Sunday is given as 0 the
// alias 7 is added so either spelling matches.
func ParseDayOfWeek(text string) (Field, error) {
	f, err := ParseField(text, DaysOfWeek)
	if err != nil {
		return Field{}, err
	}
	if f.constrained && slices.Contains(f.values, sunday) && !slices.Contains(f.values, sundayAlias) {
		f.values = append(f.values, sundayAlias)
	}
	return f, nil
}

func parseField(text string, d Domain) (Field, error) {
	if text == "*" {
		return Any(), nil
	}
	if text == "" {
		return Field{}, malformed(text, "empty field")
	}

	var values []int
	for _, section := range strings.Split(text, ",") {
		sectionValues, err := parseSection(section, d)
		if err != nil {
			return Field{}, err
		}
		values = append(values, sectionValues...)
	}

	return Field{values: values, constrained: true}, nil
}

// parseSection resolves one comma-separated section, applying its step.
func parseSection(section string, d Domain) ([]int, error) {
	base, stepText, hasStep := strings.Cut(section, "/")

	step := 1
	if hasStep {
		parsed, err := strconv.Atoi(stepText)
		if err != nil || parsed <= 0 {
			return nil, malformed(section, "step %q is not a positive integer", stepText)
		}
		step = parsed
	}

	values, err := parseBase(base, d)
	if err != nil {
		return nil, err
	}

	if step > 1 {
		values = everyNth(values, step)
	}
	return values, nil
}

// parseBase resolves "*", a range, or a single value.
func parseBase(base string, d Domain) ([]int, error) {
	switch {
	case base == "*":
		return d.all(), nil
	case strings.Contains(base, "-"):
		return parseRange(base, d)
	default:
		v, err := parseNumber(base)
		if err != nil {
			return nil, err
		}
		if !d.Contains(v) {
			return nil, &RangeError{Low: v, High: v, Domain: d}
		}
		return []int{v}, nil
	}
}

func parseRange(text string, d Domain) ([]int, error) {
	if strings.Count(text, "-") != 1 {
		return nil, malformed(text, "expected exactly one '-' in range")
	}
	lowText, highText, _ := strings.Cut(text, "-")
	if lowText == "" && highText == "" {
		return nil, malformed(text, "range has no bounds")
	}

	low, high := d.Min, d.Max
	var err error
	if lowText != "" {
		if low, err = parseNumber(lowText); err != nil {
			return nil, err
		}
	}
	if highText != "" {
		if high, err = parseNumber(highText); err != nil {
			return nil, err
		}
	}

	if !d.Contains(low) || !d.Contains(high) {
		return nil, &RangeError{Low: low, High: high, Domain: d}
	}
	if low > high {
		return nil, &RangeError{Low: low, High: high, Domain: d, Inverted: true}
	}

	values := make([]int, 0, high-low+1)
	for v := low; v <= high; v++ {
		values = append(values, v)
	}
	return values, nil
}

func parseNumber(text string) (int, error) {
	if text == "" || strings.IndexFunc(text, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, malformed(text, "not a number")
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, malformed(text, "%v", err)
	}
	return v, nil
}

// everyNth keeps the elements at positions 0, step, 2*step, ...
func everyNth(values []int, step int) []int {
	kept := make([]int, 0, (len(values)+step-1)/step)
	for i := 0; i < len(values); i += step {
		kept = append(kept, values[i])
	}
	return kept
}
