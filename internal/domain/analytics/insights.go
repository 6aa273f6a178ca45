package analytics

import (
	"fmt"

	"github.com/okian/gradelens/internal/domain/model"
)

// InsightRule is one advisory check. Rules are evaluated in declaration order
// and only those whose condition holds produce a message.
type InsightRule struct {
	ID       string
	Severity model.Severity
	Check    func(m model.Metrics) (string, bool)
}

// DefaultInsightRules is the ordered insight rule list.
var DefaultInsightRules = []InsightRule{
	{
		ID:       "low_pass_rate",
		Severity: model.SeverityWarning,
		Check: func(m model.Metrics) (string, bool) {
			return fmt.Sprintf("Pass rate is %.1f%%, below the 60%% target", m.PassRate), m.PassRate < 60
		},
	},
	{
		ID:       "weak_subject",
		Severity: model.SeverityAlert,
		Check: func(m model.Metrics) (string, bool) {
			s, ok := worstSubject(m.SubjectStats)
			if !ok || s.AverageScore >= 50 {
				return "", false
			}
			return fmt.Sprintf("%s has the lowest average score at %.1f", s.Subject, s.AverageScore), true
		},
	},
	{
		ID:       "low_attendance",
		Severity: model.SeverityWarning,
		Check: func(m model.Metrics) (string, bool) {
			return fmt.Sprintf("Average attendance is %.1f%%, below 75%%", m.AverageAttendance), m.AverageAttendance < 75
		},
	},
	{
		ID:       "at_risk_share",
		Severity: model.SeverityAlert,
		Check: func(m model.Metrics) (string, bool) {
			share := float64(m.AtRiskCount) / float64(m.TotalStudents) * 100
			return fmt.Sprintf("%d records (%.1f%%) are at medium or high risk", m.AtRiskCount, share), share >= 25
		},
	},
	{
		ID:       "high_pass_rate",
		Severity: model.SeveritySuccess,
		Check: func(m model.Metrics) (string, bool) {
			return fmt.Sprintf("Pass rate is %.1f%%", m.PassRate), m.PassRate >= 85
		},
	},
	{
		ID:       "strong_subject",
		Severity: model.SeverityInfo,
		Check: func(m model.Metrics) (string, bool) {
			s, ok := bestSubject(m.SubjectStats)
			if !ok || s.AverageScore < 80 {
				return "", false
			}
			return fmt.Sprintf("%s leads with an average score of %.1f", s.Subject, s.AverageScore), true
		},
	},
}

func evaluateInsights(rules []InsightRule, m model.Metrics) []model.Insight {
	out := []model.Insight{}
	if m.TotalStudents == 0 {
		return out
	}
	for _, r := range rules {
		if msg, ok := r.Check(m); ok {
			out = append(out, model.Insight{ID: r.ID, Severity: r.Severity, Message: msg})
		}
	}
	return out
}

func worstSubject(stats []model.SubjectStats) (model.SubjectStats, bool) {
	if len(stats) == 0 {
		return model.SubjectStats{}, false
	}
	w := stats[0]
	for _, s := range stats[1:] {
		if s.AverageScore < w.AverageScore {
			w = s
		}
	}
	return w, true
}

func bestSubject(stats []model.SubjectStats) (model.SubjectStats, bool) {
	if len(stats) == 0 {
		return model.SubjectStats{}, false
	}
	b := stats[0]
	for _, s := range stats[1:] {
		if s.AverageScore > b.AverageScore {
			b = s
		}
	}
	return b, true
}
