// Package query derives a filtered and sorted view over an assessed record set.
package query

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/okian/gradelens/internal/domain/model"
)

// Sort keys with dedicated comparators. Any other key sorts on the record's
// extension field of that name.
const (
	SortName       = "name"
	SortScore      = "score"
	SortMarks      = "marks"
	SortAttendance = "attendance"
	SortRiskScore  = "riskScore"
	SortSemester   = "semester"
	SortStudentID  = "studentId"
	SortSubject    = "subject"
)

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps user input to a Direction; anything but "desc" is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Filter holds the active predicates. Empty values match everything.
type Filter struct {
	Search    string `json:"search"`
	Subject   string `json:"subject"`
	Semester  string `json:"semester"`
	RiskLevel string `json:"riskLevel"`
}

// Sort holds the active ordering.
type Sort struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// State is the full query state.
type State struct {
	Filter Filter `json:"filter"`
	Sort   Sort   `json:"sort"`
}

// DefaultState is the state restored by ClearFilters.
func DefaultState() State {
	return State{Sort: Sort{Key: SortName, Direction: Asc}}
}

// Engine owns the base record set and the query state. Every setter
// re-derives the filtered view before returning.
type Engine struct {
	mu       sync.Mutex
	base     []model.AssessedRecord
	state    State
	filtered []model.AssessedRecord
	collator *collate.Collator
}

// New creates an Engine with an empty base set and default state.
func New() *Engine {
	e := &Engine{
		state:    DefaultState(),
		collator: collate.New(language.Und, collate.IgnoreCase),
	}
	e.filtered = []model.AssessedRecord{}
	return e
}

// SetData replaces the base set and re-applies the current query.
func (e *Engine) SetData(records []model.AssessedRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.base = append([]model.AssessedRecord(nil), records...)
	e.derive()
}

// SetSearch sets the free-text search term.
func (e *Engine) SetSearch(s string) { e.update(func(st *State) { st.Filter.Search = s }) }

// SetSubject sets the exact subject filter.
func (e *Engine) SetSubject(s string) { e.update(func(st *State) { st.Filter.Subject = s }) }

// SetSemester sets the exact semester filter.
func (e *Engine) SetSemester(s string) { e.update(func(st *State) { st.Filter.Semester = s }) }

// SetRiskLevel sets the exact risk level filter.
func (e *Engine) SetRiskLevel(s string) { e.update(func(st *State) { st.Filter.RiskLevel = s }) }

// SetSort sets the sort key and direction. An empty key selects name.
func (e *Engine) SetSort(key string, dir Direction) {
	if key == "" {
		key = SortName
	}
	if dir != Desc {
		dir = Asc
	}
	e.update(func(st *State) { st.Sort = Sort{Key: key, Direction: dir} })
}

// Apply replaces the whole query state at once.
func (e *Engine) Apply(st State) {
	if st.Sort.Key == "" {
		st.Sort.Key = SortName
	}
	if st.Sort.Direction != Desc {
		st.Sort.Direction = Asc
	}
	e.update(func(cur *State) { *cur = st })
}

// ClearFilters resets every filter and the sort to their defaults.
func (e *Engine) ClearFilters() {
	e.update(func(st *State) { *st = DefaultState() })
}

// State returns the current query state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Filtered returns a copy of the current view.
func (e *Engine) Filtered() []model.AssessedRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.AssessedRecord{}, e.filtered...)
}

// Subjects returns the distinct subjects of the base set, alphabetically.
func (e *Engine) Subjects() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range e.base {
		if _, ok := seen[r.Subject]; ok {
			continue
		}
		seen[r.Subject] = struct{}{}
		out = append(out, r.Subject)
	}
	sort.Strings(out)
	return out
}

// Semesters returns the distinct semesters of the base set in numeric order;
// non-numeric labels sort as 0.
func (e *Engine) Semesters() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range e.base {
		if _, ok := seen[r.Semester]; ok {
			continue
		}
		seen[r.Semester] = struct{}{}
		out = append(out, r.Semester)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return model.SemesterOrdinal(out[i]) < model.SemesterOrdinal(out[j])
	})
	return out
}

func (e *Engine) update(fn func(*State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
	e.derive()
}

// derive recomputes the view. Callers hold e.mu.
func (e *Engine) derive() {
	preds := predicates(e.state.Filter)
	out := make([]model.AssessedRecord, 0, len(e.base))
	for _, r := range e.base {
		if matchAll(preds, r) {
			out = append(out, r)
		}
	}

	less := e.comparator(e.state.Sort.Key)
	desc := e.state.Sort.Direction == Desc
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	e.filtered = out
}

func (e *Engine) comparator(key string) func(a, b model.AssessedRecord) bool {
	number := func(f func(model.AssessedRecord) float64) func(a, b model.AssessedRecord) bool {
		return func(a, b model.AssessedRecord) bool { return f(a)-f(b) < 0 }
	}
	text := func(f func(model.AssessedRecord) string) func(a, b model.AssessedRecord) bool {
		return func(a, b model.AssessedRecord) bool { return e.collator.CompareString(f(a), f(b)) < 0 }
	}

	switch key {
	case SortName:
		return text(func(r model.AssessedRecord) string { return r.Name })
	case SortScore, SortMarks:
		return number(func(r model.AssessedRecord) float64 { return r.Marks })
	case SortAttendance:
		return number(func(r model.AssessedRecord) float64 { return r.Attendance })
	case SortRiskScore:
		return number(func(r model.AssessedRecord) float64 { return float64(r.RiskScore) })
	case SortSemester:
		return number(func(r model.AssessedRecord) float64 { return float64(r.SemesterNumber()) })
	case SortStudentID:
		return text(func(r model.AssessedRecord) string { return r.StudentID })
	case SortSubject:
		return text(func(r model.AssessedRecord) string { return r.Subject })
	}

	// Raw extension field: numeric when both sides parse, otherwise text.
	return func(a, b model.AssessedRecord) bool {
		av, bv := a.Extra[key], b.Extra[key]
		an, aerr := strconv.ParseFloat(av, 64)
		bn, berr := strconv.ParseFloat(bv, 64)
		if aerr == nil && berr == nil {
			return an-bn < 0
		}
		return e.collator.CompareString(av, bv) < 0
	}
}
