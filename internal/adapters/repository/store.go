// Package repository holds the class standings: every student of the
// current dataset ranked by mean score.
package repository

import (
	"context"

	"github.com/okian/gradelens/internal/domain/model"
)

// Entry is one student's place in the standings.
type Entry struct {
	Rank         int     `json:"rank"`
	StudentID    string  `json:"studentId"`
	Name         string  `json:"name"`
	AverageScore float64 `json:"averageScore"`
	Records      int     `json:"records"`
	Of           int     `json:"of"` // students ranked
}

// Store provides read/write access to the standings.
type Store interface {
	// Replace discards the standings and ranks performers instead.
	// Equal scores keep the order of performers.
	Replace(ctx context.Context, performers []model.Performer) error

	// Rank returns the standing of a student.
	// Returns ErrNotFound if the student is unknown.
	Rank(ctx context.Context, studentID string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of ranked students.
	Count(ctx context.Context) int
}
