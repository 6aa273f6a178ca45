package analytics

import (
	"sort"

	"github.com/okian/gradelens/internal/domain/model"
)

// rankPerformers groups records by student, averages each student's marks and
// attendance, and returns the first n by mean score. Ties keep the order in
// which students were first encountered.
func rankPerformers(records []model.AssessedRecord, n int, descending bool) []model.Performer {
	if n <= 0 {
		n = DefaultPerformerCount
	}

	type acc struct {
		p                model.Performer
		sumScore, sumAtt float64
	}
	index := make(map[string]int)
	var groups []*acc
	for _, r := range records {
		i, ok := index[r.StudentID]
		if !ok {
			i = len(groups)
			index[r.StudentID] = i
			groups = append(groups, &acc{p: model.Performer{StudentID: r.StudentID, Name: r.Name}})
		}
		g := groups[i]
		g.p.Records++
		g.sumScore += r.Marks
		g.sumAtt += r.Attendance
	}

	out := make([]model.Performer, len(groups))
	for i, g := range groups {
		g.p.AverageScore = g.sumScore / float64(g.p.Records)
		g.p.AverageAttendance = g.sumAtt / float64(g.p.Records)
		out[i] = g.p
	}

	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].AverageScore < out[j].AverageScore
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// trendThreshold is the mark delta beyond which a trend is up or down.
const trendThreshold = 5

func studentTrend(records []model.AssessedRecord, studentID string) model.Trend {
	var own []model.AssessedRecord
	for _, r := range records {
		if r.StudentID == studentID {
			own = append(own, r)
		}
	}
	t := model.Trend{StudentID: studentID, Direction: model.TrendStable, Points: len(own)}
	if len(own) < 2 {
		return t
	}

	sort.SliceStable(own, func(i, j int) bool {
		return own[i].SemesterNumber() < own[j].SemesterNumber()
	})
	// Two-point comparison; intermediate semesters are ignored.
	t.Change = own[len(own)-1].Marks - own[0].Marks
	switch {
	case t.Change > trendThreshold:
		t.Direction = model.TrendUp
	case t.Change < -trendThreshold:
		t.Direction = model.TrendDown
	}
	return t
}
