// Package sampledata generates synthetic grade datasets and drives them
// against a running gradelens server.
package sampledata

import "time"

// Config holds configuration for a generate/upload run.
type Config struct {
	BaseURL    string        // Base URL of the service; empty skips the upload
	Students   int           // Number of distinct students
	Subjects   []string      // Subjects every student is assessed in
	Semesters  int           // Semesters per subject
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // CSV destination; empty skips writing
	Verbose    bool          // Log the verification breakdown
}

// Stats holds run statistics.
type Stats struct {
	RecordsGenerated int
	BytesWritten     int
	Accepted         int
	Rejected         int
	DatasetID        string
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
