package parser

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/gradelens/internal/domain/model"
)

// ExportHeaders is the column order written by Serialize before any extra
// pass-through columns.
var ExportHeaders = []string{
	model.FieldStudentID,
	model.FieldName,
	model.FieldSubject,
	model.FieldMarks,
	model.FieldAttendance,
	model.FieldSemester,
	model.FieldAssessmentType,
}

// Serialize writes records as CSV using the same quoting rules as ingestion.
// Only fields containing a comma or a quote are quoted. Extra columns seen on
// any record are appended in alphabetical order.
func Serialize(w io.Writer, records []model.Record) error {
	extras := extraColumns(records)
	header := append(append([]string(nil), ExportHeaders...), extras...)
	if _, err := io.WriteString(w, joinRow(header)); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, r := range records {
		row = row[:0]
		row = append(row,
			r.StudentID,
			r.Name,
			r.Subject,
			formatNumber(r.Marks),
			formatNumber(r.Attendance),
			r.Semester,
			r.AssessmentType,
		)
		for _, k := range extras {
			row = append(row, r.Extra[k])
		}
		if _, err := io.WriteString(w, joinRow(row)); err != nil {
			return err
		}
	}
	return nil
}

// SerializeString is Serialize into a string.
func SerializeString(records []model.Record) string {
	var b strings.Builder
	_ = Serialize(&b, records)
	return b.String()
}

func extraColumns(records []model.Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Extra {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func joinRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = QuoteField(f)
	}
	return strings.Join(quoted, ",") + "\n"
}

// QuoteField applies minimal quoting: a field is wrapped in quotes, with
// embedded quotes doubled, only when it contains a comma or a quote.
func QuoteField(f string) string {
	if !strings.ContainsAny(f, `,"`) {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
