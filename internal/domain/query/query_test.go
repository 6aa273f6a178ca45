package query_test

import (
	"testing"

	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/query"
	"github.com/okian/gradelens/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

func fixture() []model.AssessedRecord {
	return risk.AssessAll([]model.Record{
		{StudentID: "S1", Name: "bob", Subject: "Math", Semester: "2", Marks: 45, Attendance: 60, Extra: map[string]string{"section": "10"}},
		{StudentID: "S2", Name: "Alice", Subject: "Physics", Semester: "1", Marks: 90, Attendance: 95, Extra: map[string]string{"section": "9"}},
		{StudentID: "S3", Name: "Émile", Subject: "Math", Semester: "10", Marks: 72, Attendance: 80, Extra: map[string]string{"section": "B"}},
		{StudentID: "S4", Name: "carol", Subject: "Chemistry", Semester: "1", Marks: 30, Attendance: 40},
		{StudentID: "S5", Name: "Dave", Subject: "Math", Semester: "1", Marks: 90, Attendance: 55},
	})
}

func ids(rs []model.AssessedRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.StudentID
	}
	return out
}

func TestEngine_Defaults(t *testing.T) {
	Convey("Given a new engine", t, func() {
		e := query.New()

		Convey("Then the view is empty and the state is the default", func() {
			So(e.Filtered(), ShouldNotBeNil)
			So(e.Filtered(), ShouldBeEmpty)
			So(e.State(), ShouldResemble, query.DefaultState())
			So(e.Subjects(), ShouldBeEmpty)
		})

		Convey("When data is loaded", func() {
			e.SetData(fixture())

			Convey("Then every record is visible sorted by name, ignoring case and accents", func() {
				So(ids(e.Filtered()), ShouldResemble, []string{"S2", "S1", "S4", "S5", "S3"})
			})
		})
	})
}

func TestEngine_Filters(t *testing.T) {
	Convey("Given an engine with data", t, func() {
		e := query.New()
		e.SetData(fixture())

		Convey("When searching, the match is a case-insensitive substring over name, id and subject", func() {
			e.SetSearch("ALI")
			So(ids(e.Filtered()), ShouldResemble, []string{"S2"})

			e.SetSearch("s4")
			So(ids(e.Filtered()), ShouldResemble, []string{"S4"})

			e.SetSearch("chem")
			So(ids(e.Filtered()), ShouldResemble, []string{"S4"})

			e.SetSearch("   ")
			So(e.Filtered(), ShouldHaveLength, 5)
		})

		Convey("When filtering by subject and semester, both must match", func() {
			e.SetSubject("Math")
			e.SetSemester("1")
			So(ids(e.Filtered()), ShouldResemble, []string{"S5"})
		})

		Convey("When filtering by risk level", func() {
			e.SetRiskLevel(string(model.RiskHigh))
			for _, r := range e.Filtered() {
				So(r.RiskLevel, ShouldEqual, model.RiskHigh)
			}
			So(ids(e.Filtered()), ShouldContain, "S4")
		})

		Convey("When no record matches", func() {
			e.SetSubject("Art")
			So(e.Filtered(), ShouldNotBeNil)
			So(e.Filtered(), ShouldBeEmpty)
		})

		Convey("The filter order does not change the result", func() {
			e.SetSubject("Math")
			e.SetSearch("a")
			first := ids(e.Filtered())

			other := query.New()
			other.SetData(fixture())
			other.SetSearch("a")
			other.SetSubject("Math")
			So(ids(other.Filtered()), ShouldResemble, first)
		})

		Convey("Clearing filters restores the full default view", func() {
			before := ids(e.Filtered())
			e.SetSubject("Math")
			e.SetRiskLevel("low")
			e.SetSort(query.SortScore, query.Desc)
			e.ClearFilters()
			So(e.State(), ShouldResemble, query.DefaultState())
			So(ids(e.Filtered()), ShouldResemble, before)
		})

		Convey("Replacing the data re-applies the active filter", func() {
			e.SetSubject("Physics")
			e.SetData(fixture()[:1])
			So(e.Filtered(), ShouldBeEmpty)
		})
	})
}

func TestEngine_Sort(t *testing.T) {
	Convey("Given an engine with data", t, func() {
		e := query.New()
		e.SetData(fixture())

		Convey("Score ascending keeps input order on ties", func() {
			e.SetSort(query.SortScore, query.Asc)
			So(ids(e.Filtered()), ShouldResemble, []string{"S4", "S1", "S3", "S2", "S5"})
		})

		Convey("Score descending also keeps input order on ties", func() {
			e.SetSort(query.SortScore, query.Desc)
			So(ids(e.Filtered()), ShouldResemble, []string{"S2", "S5", "S3", "S1", "S4"})
		})

		Convey("Semester sorts numerically", func() {
			e.SetSort(query.SortSemester, query.Asc)
			So(ids(e.Filtered()), ShouldResemble, []string{"S2", "S4", "S5", "S1", "S3"})
		})

		Convey("Attendance sorts ascending", func() {
			e.SetSort(query.SortAttendance, query.Asc)
			So(ids(e.Filtered()), ShouldResemble, []string{"S4", "S5", "S1", "S3", "S2"})
		})

		Convey("Risk score descending puts the riskiest first", func() {
			e.SetSort(query.SortRiskScore, query.Desc)
			out := e.Filtered()
			for i := 1; i < len(out); i++ {
				So(out[i-1].RiskScore, ShouldBeGreaterThanOrEqualTo, out[i].RiskScore)
			}
		})

		Convey("An unknown key sorts on the raw extension field", func() {
			e.SetSort("section", query.Asc)
			// Missing and non-numeric values compare as text.
			So(ids(e.Filtered())[0], ShouldEqual, "S4")
		})

		Convey("An empty key and unknown direction fall back to name ascending", func() {
			e.SetSort("", query.Direction("sideways"))
			So(e.State().Sort, ShouldResemble, query.Sort{Key: query.SortName, Direction: query.Asc})
		})
	})
}

func TestEngine_Facets(t *testing.T) {
	Convey("Given an engine with data", t, func() {
		e := query.New()
		e.SetData(fixture())

		Convey("Subjects are distinct and alphabetical", func() {
			So(e.Subjects(), ShouldResemble, []string{"Chemistry", "Math", "Physics"})
		})

		Convey("Semesters are distinct and numeric", func() {
			So(e.Semesters(), ShouldResemble, []string{"1", "2", "10"})
		})
	})
}

func TestParseDirection(t *testing.T) {
	Convey("Given direction strings", t, func() {
		So(query.ParseDirection("DESC"), ShouldEqual, query.Desc)
		So(query.ParseDirection(" desc "), ShouldEqual, query.Desc)
		So(query.ParseDirection("asc"), ShouldEqual, query.Asc)
		So(query.ParseDirection(""), ShouldEqual, query.Asc)
	})
}
