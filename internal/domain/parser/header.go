package parser

import (
	"strings"

	"github.com/okian/gradelens/internal/domain/model"
)

// headerSynonyms maps normalized header tokens to canonical field names.
var headerSynonyms = map[string]string{
	"id":                 model.FieldStudentID,
	"studentid":          model.FieldStudentID,
	"student_id":         model.FieldStudentID,
	"roll_no":            model.FieldStudentID,
	"rollno":             model.FieldStudentID,
	"roll_number":        model.FieldStudentID,
	"name":               model.FieldName,
	"student_name":       model.FieldName,
	"studentname":        model.FieldName,
	"full_name":          model.FieldName,
	"subject":            model.FieldSubject,
	"course":             model.FieldSubject,
	"subject_name":       model.FieldSubject,
	"marks":              model.FieldMarks,
	"mark":               model.FieldMarks,
	"score":              model.FieldMarks,
	"scores":             model.FieldMarks,
	"grade":              model.FieldMarks,
	"percentage":         model.FieldMarks,
	"attendance":         model.FieldAttendance,
	"attendance_percent": model.FieldAttendance,
	"attendance_pct":     model.FieldAttendance,
	"attendance_rate":    model.FieldAttendance,
	"semester":           model.FieldSemester,
	"sem":                model.FieldSemester,
	"term":               model.FieldSemester,
	"assessmenttype":     model.FieldAssessmentType,
	"assessment_type":    model.FieldAssessmentType,
	"assessment":         model.FieldAssessmentType,
	"exam_type":          model.FieldAssessmentType,
	"type":               model.FieldAssessmentType,
}

// NormalizeHeader lowercases a header token, replaces every character outside
// [a-z0-9_] with '_', collapses runs of '_', trims leading and trailing '_',
// and maps known synonyms to canonical field names. Unknown names are
// returned in their normalized form.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))

	var b strings.Builder
	b.Grow(len(h))
	prevUnderscore := false
	for _, r := range h {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	n := strings.Trim(b.String(), "_")

	if canon, ok := headerSynonyms[n]; ok {
		return canon
	}
	return n
}

func isKnownField(name string) bool {
	switch name {
	case model.FieldStudentID, model.FieldName, model.FieldSubject, model.FieldMarks,
		model.FieldAttendance, model.FieldSemester, model.FieldAssessmentType:
		return true
	}
	return false
}
