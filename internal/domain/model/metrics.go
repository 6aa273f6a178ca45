package model

// Metrics is the full set of aggregate statistics for one record set.
// It is recomputed wholesale whenever the record set changes.
type Metrics struct {
	TotalStudents          int               `json:"totalStudents"` // record count
	UniqueStudents         int               `json:"uniqueStudents"`
	AverageScore           float64           `json:"averageScore"`
	AverageAttendance      float64           `json:"averageAttendance"`
	PassRate               float64           `json:"passRate"`
	FailRate               float64           `json:"failRate"`
	AtRiskCount            int               `json:"atRiskCount"`
	SubjectStats           []SubjectStats    `json:"subjectStats"`
	SemesterStats          []SemesterStats   `json:"semesterStats"`
	ScoreDistribution      []Band            `json:"scoreDistribution"`
	AttendanceDistribution []Band            `json:"attendanceDistribution"`
	RiskDistribution       map[RiskLevel]int `json:"riskDistribution"`
	TopPerformers          []Performer       `json:"topPerformers"`
	BottomPerformers       []Performer       `json:"bottomPerformers"`
	Insights               []Insight         `json:"insights"`
}

// SubjectStats aggregates records sharing a subject.
type SubjectStats struct {
	Subject           string  `json:"subject"`
	Count             int     `json:"count"`
	AverageScore      float64 `json:"averageScore"`
	AverageAttendance float64 `json:"averageAttendance"`
	MinScore          float64 `json:"minScore"`
	MaxScore          float64 `json:"maxScore"`
	PassRate          float64 `json:"passRate"`
}

// SemesterStats aggregates records sharing a semester.
type SemesterStats struct {
	Semester          string  `json:"semester"`
	Count             int     `json:"count"`
	AverageScore      float64 `json:"averageScore"`
	AverageAttendance float64 `json:"averageAttendance"`
	UniqueStudents    int     `json:"uniqueStudents"`
}

// Band is one histogram bucket with inclusive bounds.
type Band struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Performer is a per-student aggregate across all of that student's records.
type Performer struct {
	StudentID         string  `json:"studentId"`
	Name              string  `json:"name"`
	AverageScore      float64 `json:"averageScore"`
	AverageAttendance float64 `json:"averageAttendance"`
	Records           int     `json:"records"`
}

// TrendDirection describes a student's first-to-last movement.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Trend is the first-vs-last semester comparison for one student.
type Trend struct {
	StudentID string         `json:"studentId"`
	Direction TrendDirection `json:"trend"`
	Change    float64        `json:"change"`
	Points    int            `json:"points"`
}

// Severity classifies an insight.
type Severity string

const (
	SeverityAlert   Severity = "alert"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// Insight is one advisory message derived from Metrics.
type Insight struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
