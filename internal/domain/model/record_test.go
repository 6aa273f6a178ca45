package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSemesterOrdinal(t *testing.T) {
	Convey("Given semester labels", t, func() {
		cases := map[string]int{
			"1":     1,
			" 12 ":  12,
			"2nd":   2,
			"1.5":   1,
			"3 (S)": 3,
			"-1":    -1,
			"Fall":  0,
			"Sem 2": 0,
			"":      0,
			"+":     0,
		}

		Convey("Then the leading integer is used", func() {
			for label, want := range cases {
				So(SemesterOrdinal(label), ShouldEqual, want)
			}
			So(Record{Semester: "4th"}.SemesterNumber(), ShouldEqual, 4)
		})
	})
}
