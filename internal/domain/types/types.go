// Package types contains common types used across the application
package types

import (
	"github.com/okian/gradelens/internal/domain/model"
)

// Entry represents a ranked performer.
type Entry struct {
	Rank              int     `json:"rank"`
	StudentID         string  `json:"studentId"`
	Name              string  `json:"name"`
	AverageScore      float64 `json:"averageScore"`
	AverageAttendance float64 `json:"averageAttendance"`
	Records           int     `json:"records"`
}

// Entries ranks performers starting at 1 in the given order.
func Entries(performers []model.Performer) []Entry {
	out := make([]Entry, len(performers))
	for i, p := range performers {
		out[i] = Entry{
			Rank:              i + 1,
			StudentID:         p.StudentID,
			Name:              p.Name,
			AverageScore:      p.AverageScore,
			AverageAttendance: p.AverageAttendance,
			Records:           p.Records,
		}
	}
	return out
}

// RowIssue is a rejected row as reported to clients.
type RowIssue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// UploadSummary describes a committed load.
type UploadSummary struct {
	DatasetID string     `json:"datasetId"`
	Accepted  int        `json:"accepted"`
	Rejected  int        `json:"rejected"`
	Headers   []string   `json:"headers"`
	Errors    []RowIssue `json:"errors"`
}

// Stats is the pipeline snapshot served at /stats.
type Stats struct {
	DatasetID       string `json:"datasetId"`
	LoadedAt        string `json:"loadedAt,omitempty"` // RFC 3339, empty before the first load
	Records         int    `json:"records"`
	RowErrors       int    `json:"rowErrors"`
	Filtered        int    `json:"filtered"`
	RankedStudents  int    `json:"rankedStudents"`
	Loads           int64  `json:"loads"`
	FailedLoads     int64  `json:"failedLoads"`
	SupersededLoads int64  `json:"supersededLoads"`
	MaxUploadBytes  int64  `json:"maxUploadBytes"`
	MaxRows         int    `json:"maxRows"`
}
