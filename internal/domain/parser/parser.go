// Package parser turns raw CSV text into normalized student performance records.
//
// Parsing is lenient at the row level: malformed rows are dropped and reported
// through Result.Errors, and the parse only fails when no row survives.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gradelens/internal/domain/model"
)

// Default values applied to absent fields.
const (
	DefaultSubject        = "General"
	DefaultSemester       = "1"
	DefaultAssessmentType = "Exam"

	minScore = 0
	maxScore = 100
)

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithClock sets the time source used to stamp row ids.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMaxRows caps the number of data rows considered. Zero means unlimited.
func WithMaxRows(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.maxRows = n
		}
	}
}

// Result is the outcome of a successful parse.
type Result struct {
	Records []model.Record
	Errors  []RowError
	Headers []string // normalized header names in column order
}

// Parser converts CSV text into records. A Parser has no per-call state and
// can be reused.
type Parser struct {
	now     func() time.Time
	maxRows int
}

// New creates a Parser with the given options.
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses raw with a default Parser.
func Parse(raw string) (*Result, error) {
	return New().Parse(raw)
}

// Parse tokenizes raw, normalizes headers and builds one record per valid row.
func (p *Parser) Parse(raw string) (*Result, error) {
	lines := splitLines(raw)
	if len(lines) < 2 {
		return nil, &ParseError{Reason: ErrNoData}
	}

	rawHeaders := SplitLine(lines[0])
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = NormalizeHeader(h)
	}

	stamp := p.now().UnixMilli()
	res := &Result{Headers: headers}
	data := lines[1:]
	if p.maxRows > 0 && len(data) > p.maxRows {
		res.Errors = append(res.Errors, RowError{
			Line: p.maxRows + 2,
			Err:  ErrRowLimit,
			Msg:  fmt.Sprintf("%d rows beyond the limit of %d were ignored", len(data)-p.maxRows, p.maxRows),
		})
		data = data[:p.maxRows]
	}

	for i, line := range data {
		lineNo := i + 2
		tokens := SplitLine(line)
		if len(tokens) != len(headers) {
			res.Errors = append(res.Errors, RowError{
				Line: lineNo,
				Err:  ErrColumnCount,
				Msg:  fmt.Sprintf("expected %d columns, got %d", len(headers), len(tokens)),
			})
			continue
		}

		fields := make(map[string]value, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			fields[h] = coerce(tokens[j])
		}

		rec, err := buildRecord(fields, i+1, stamp)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: lineNo, Err: err, Msg: err.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if len(res.Records) == 0 {
		return nil, &ParseError{Reason: ErrNoValidRows, RowErrors: res.Errors}
	}
	return res, nil
}

// value is a coerced CSV cell. An empty cell is absent.
type value struct {
	text    string
	num     float64
	numeric bool
	present bool
}

func coerce(raw string) value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return value{}
	}
	v := value{text: s, present: true}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		v.num = n
		v.numeric = true
	}
	return v
}

func buildRecord(fields map[string]value, index int, stamp int64) (model.Record, error) {
	id := fields[model.FieldStudentID]
	name := fields[model.FieldName]
	if !id.present && !name.present {
		return model.Record{}, ErrMissingIdentity
	}

	rec := model.Record{
		StudentID:      id.text,
		Name:           name.text,
		Subject:        textOr(fields[model.FieldSubject], DefaultSubject),
		Marks:          score(fields[model.FieldMarks]),
		Attendance:     score(fields[model.FieldAttendance]),
		Semester:       textOr(fields[model.FieldSemester], DefaultSemester),
		AssessmentType: textOr(fields[model.FieldAssessmentType], DefaultAssessmentType),
	}
	if rec.StudentID == "" {
		rec.StudentID = "STU-" + strconv.Itoa(index)
	}
	if rec.Name == "" {
		rec.Name = "Student " + rec.StudentID
	}

	for k, v := range fields {
		if isKnownField(k) || !v.present {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[k] = v.text
	}

	rec.RowID = fmt.Sprintf("%s_%s_%s_%d_%d", rec.StudentID, rec.Subject, rec.Semester, stamp, index)
	return rec, nil
}

func textOr(v value, def string) string {
	if !v.present {
		return def
	}
	return v.text
}

// score converts a cell to a number in [0,100]. Absent or unparseable cells
// become 0; a trailing percent sign is accepted.
func score(v value) float64 {
	if !v.present {
		return 0
	}
	n := v.num
	if !v.numeric {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v.text, "%")), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0
		}
		n = parsed
	}
	return Clamp(n)
}

// Clamp bounds a score or attendance value to [0,100].
func Clamp(n float64) float64 {
	if math.IsNaN(n) {
		return minScore
	}
	return math.Max(minScore, math.Min(maxScore, n))
}
