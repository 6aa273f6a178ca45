// Package risk classifies student records with an additive, rule-based score.
//
// Each rule is evaluated independently against a record's marks and
// attendance; the weights of every rule that fires are summed and capped at
// 1.0. Classification is a pure function of a single record.
package risk

import (
	"math"
	"sort"

	"github.com/okian/gradelens/internal/domain/model"
)

// Level thresholds on the raw score, expressed in hundredths.
const (
	highThreshold   = 70
	mediumThreshold = 40
	lowThreshold    = 20
	maxRaw          = 100
)

// Rule is one entry of the rule table.
type Rule struct {
	Name    string
	Weight  float64
	Applies func(marks, attendance float64) bool
}

// DefaultRules is the ordered rule table. Rules are not mutually exclusive.
var DefaultRules = []Rule{
	{Name: "Low Score", Weight: 0.4, Applies: func(m, _ float64) bool { return m < 40 }},
	{Name: "Very Low Score", Weight: 0.6, Applies: func(m, _ float64) bool { return m < 30 }},
	{Name: "Low Attendance", Weight: 0.3, Applies: func(_, a float64) bool { return a < 60 }},
	{Name: "Very Low Attendance", Weight: 0.5, Applies: func(_, a float64) bool { return a < 50 }},
	{Name: "Combined Risk", Weight: 0.7, Applies: func(m, a float64) bool { return m < 50 && a < 70 }},
	{Name: "Critical Risk", Weight: 0.9, Applies: func(m, a float64) bool { return m < 35 && a < 60 }},
}

// Factor messages, one per band.
const (
	FactorVeryLowScore       = "Very low score (below 30%)"
	FactorLowScore           = "Low score (below 40%)"
	FactorBelowAverageScore  = "Below average score (below 50%)"
	FactorVeryLowAttendance  = "Very low attendance (below 50%)"
	FactorLowAttendance      = "Low attendance (below 60%)"
	FactorBelowAvgAttendance = "Below average attendance (below 70%)"
	FactorCombined           = "Combined low performance and attendance"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRules replaces the rule table. An empty table is ignored.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = append([]Rule(nil), rules...)
		}
	}
}

// Assessor classifies a single record.
type Assessor interface {
	Assess(r model.Record) model.RiskAssessment
}

// Engine evaluates a rule table. It holds no mutable state after construction.
type Engine struct {
	rules []Rule
}

// New creates an Engine using DefaultRules unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Assess classifies r with the default rule table.
func Assess(r model.Record) model.RiskAssessment { return defaultEngine.Assess(r) }

// AssessAll annotates records with the default rule table.
func AssessAll(records []model.Record) []model.AssessedRecord {
	return defaultEngine.AssessAll(records)
}

// Assess computes the risk score, level and factors for r.
func (e *Engine) Assess(r model.Record) model.RiskAssessment {
	// Weights are summed in hundredths so thresholds are not subject to
	// floating point drift (0.4+0.3 must be exactly 0.7).
	total := 0
	for _, rule := range e.rules {
		if rule.Applies(r.Marks, r.Attendance) {
			total += int(math.Round(rule.Weight * 100))
		}
	}
	if total > maxRaw {
		total = maxRaw
	}
	return model.RiskAssessment{
		RiskScore:   total,
		RiskLevel:   levelFor(total),
		RiskFactors: Factors(r.Marks, r.Attendance),
	}
}

// AssessAll annotates every record, preserving input order.
func (e *Engine) AssessAll(records []model.Record) []model.AssessedRecord {
	out := make([]model.AssessedRecord, len(records))
	for i, r := range records {
		out[i] = model.AssessedRecord{Record: r, RiskAssessment: e.Assess(r)}
	}
	return out
}

func levelFor(raw int) model.RiskLevel {
	switch {
	case raw >= highThreshold:
		return model.RiskHigh
	case raw >= mediumThreshold:
		return model.RiskMedium
	case raw >= lowThreshold:
		return model.RiskLow
	default:
		return model.RiskNone
	}
}

// Factors explains a classification: at most one score-band message, at most
// one attendance-band message, and a combined message when both marks < 50
// and attendance < 70.
func Factors(marks, attendance float64) []string {
	factors := make([]string, 0, 3)
	switch {
	case marks < 30:
		factors = append(factors, FactorVeryLowScore)
	case marks < 40:
		factors = append(factors, FactorLowScore)
	case marks < 50:
		factors = append(factors, FactorBelowAverageScore)
	}
	switch {
	case attendance < 50:
		factors = append(factors, FactorVeryLowAttendance)
	case attendance < 60:
		factors = append(factors, FactorLowAttendance)
	case attendance < 70:
		factors = append(factors, FactorBelowAvgAttendance)
	}
	if marks < 50 && attendance < 70 {
		factors = append(factors, FactorCombined)
	}
	return factors
}

// AtRiskCount counts records whose level is high or medium.
func AtRiskCount(records []model.AssessedRecord) int {
	n := 0
	for _, r := range records {
		if r.RiskLevel.AtRisk() {
			n++
		}
	}
	return n
}

// Partition buckets records by level. Every level has an entry, possibly empty.
func Partition(records []model.AssessedRecord) map[model.RiskLevel][]model.AssessedRecord {
	buckets := make(map[model.RiskLevel][]model.AssessedRecord, len(model.RiskLevels))
	for _, l := range model.RiskLevels {
		buckets[l] = []model.AssessedRecord{}
	}
	for _, r := range records {
		buckets[r.RiskLevel] = append(buckets[r.RiskLevel], r)
	}
	return buckets
}

// Ranked returns the high and medium records ordered by descending score.
// Ties keep their original order.
func Ranked(records []model.AssessedRecord) []model.AssessedRecord {
	out := make([]model.AssessedRecord, 0, len(records))
	for _, r := range records {
		if r.RiskLevel.AtRisk() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	return out
}
