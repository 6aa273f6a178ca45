package api

import (
	"errors"
	"net/http"

	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/query"
)

// RecordsHandler serves the filtered record view.
type RecordsHandler struct {
	deps RecordsDependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps RecordsDependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

type recordsResponse struct {
	State   query.State            `json:"state"`
	Count   int                    `json:"count"`
	Records []model.AssessedRecord `json:"records"`
}

// HandleRecords handles GET /records?search=&subject=&semester=&risk=&sort=&dir=.
// The parameters replace the active query state.
func (h *RecordsHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_records"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	st, err := stateFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view := h.deps.ApplyQuery(st)
	writeJSON(w, http.StatusOK, recordsResponse{State: st, Count: len(view), Records: view})
}

// HandleFacets handles GET /facets.
func (h *RecordsHandler) HandleFacets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"subjects":  h.deps.Subjects(),
		"semesters": h.deps.Semesters(),
	})
}

// HandleExport handles GET /export?scope=filtered|all and streams CSV.
func (h *RecordsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var filteredOnly bool
	switch r.URL.Query().Get("scope") {
	case "", "all":
	case "filtered":
		filteredOnly = true
	default:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("scope must be filtered or all")))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="gradelens-export.csv"`)
	w.WriteHeader(http.StatusOK)
	_ = h.deps.Export(w, filteredOnly)
}

func stateFromRequest(r *http.Request) (query.State, error) {
	q := r.URL.Query()
	st := query.State{
		Filter: query.Filter{
			Search:    q.Get("search"),
			Subject:   q.Get("subject"),
			Semester:  q.Get("semester"),
			RiskLevel: q.Get("risk"),
		},
		Sort: query.Sort{
			Key:       q.Get("sort"),
			Direction: query.ParseDirection(q.Get("dir")),
		},
	}
	if st.Filter.RiskLevel != "" && !model.RiskLevel(st.Filter.RiskLevel).Valid() {
		return query.State{}, errors.New("risk must be one of high, medium, low, none")
	}
	if st.Sort.Key == "" {
		st.Sort.Key = query.SortName
	}
	return st, nil
}
