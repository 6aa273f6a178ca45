package query

import (
	"strings"

	"github.com/okian/gradelens/internal/domain/model"
)

type predicate func(model.AssessedRecord) bool

// predicates builds the active predicate list. Empty filter values add
// nothing, so they pass every record.
func predicates(f Filter) []predicate {
	var preds []predicate
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		preds = append(preds, func(r model.AssessedRecord) bool {
			return strings.Contains(strings.ToLower(r.Name), term) ||
				strings.Contains(strings.ToLower(r.StudentID), term) ||
				strings.Contains(strings.ToLower(r.Subject), term)
		})
	}
	if f.Subject != "" {
		preds = append(preds, func(r model.AssessedRecord) bool { return r.Subject == f.Subject })
	}
	if f.Semester != "" {
		preds = append(preds, func(r model.AssessedRecord) bool { return r.Semester == f.Semester })
	}
	if f.RiskLevel != "" {
		preds = append(preds, func(r model.AssessedRecord) bool { return string(r.RiskLevel) == f.RiskLevel })
	}
	return preds
}

func matchAll(preds []predicate, r model.AssessedRecord) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}
