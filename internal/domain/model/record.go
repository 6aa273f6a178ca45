// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"strings"
)

// Canonical field names produced by header normalization.
const (
	FieldStudentID      = "studentId"
	FieldName           = "name"
	FieldSubject        = "subject"
	FieldMarks          = "marks"
	FieldAttendance     = "attendance"
	FieldSemester       = "semester"
	FieldAssessmentType = "assessmentType"
)

// Record is one subject-assessment observation for one student.
type Record struct {
	StudentID      string            `json:"studentId"`
	Name           string            `json:"name"`
	Subject        string            `json:"subject"`
	Marks          float64           `json:"marks"`      // clamped to [0,100]
	Attendance     float64           `json:"attendance"` // clamped to [0,100]
	Semester       string            `json:"semester"`
	AssessmentType string            `json:"assessmentType"`
	RowID          string            `json:"rowId"`
	Extra          map[string]string `json:"extra,omitempty"` // unknown columns, passed through
}

// SemesterNumber parses Semester as an integer, falling back to 0.
func (r Record) SemesterNumber() int {
	return SemesterOrdinal(r.Semester)
}

// SemesterOrdinal reads the leading integer of a semester label, so "2nd"
// is 2 and "1.5" is 1. Labels that do not start with a digit are 0.
func SemesterOrdinal(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// RiskLevel is the ordinal risk classification of a record.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
	RiskNone   RiskLevel = "none"
)

// RiskLevels lists every level from most to least severe.
var RiskLevels = []RiskLevel{RiskHigh, RiskMedium, RiskLow, RiskNone}

// AtRisk reports whether the level counts toward the at-risk population.
func (l RiskLevel) AtRisk() bool {
	return l == RiskHigh || l == RiskMedium
}

// Valid reports whether l is one of the known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskHigh, RiskMedium, RiskLow, RiskNone:
		return true
	}
	return false
}

// RiskAssessment is attached to a Record; it depends only on that record's
// marks and attendance.
type RiskAssessment struct {
	RiskScore   int       `json:"riskScore"` // 0-100
	RiskLevel   RiskLevel `json:"riskLevel"`
	RiskFactors []string  `json:"riskFactors"`
}

// AssessedRecord is a Record annotated with its risk assessment.
type AssessedRecord struct {
	Record
	RiskAssessment
}
