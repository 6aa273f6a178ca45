package analytics

import (
	"fmt"

	"github.com/okian/gradelens/internal/domain/model"
)

// bandBounds are inclusive [min,max] pairs. A value belongs to the first band
// whose upper bound is >= the value, so 20 lands in [0,20] and 20.5 in [21,40].
type bandBounds struct{ min, max float64 }

var (
	scoreBands      = []bandBounds{{0, 20}, {21, 40}, {41, 60}, {61, 80}, {81, 100}}
	attendanceBands = []bandBounds{{0, 50}, {51, 70}, {71, 85}, {86, 100}}
)

func newBands(bounds []bandBounds) []model.Band {
	out := make([]model.Band, len(bounds))
	for i, b := range bounds {
		out[i] = model.Band{
			Label: fmt.Sprintf("%g-%g", b.min, b.max),
			Min:   b.min,
			Max:   b.max,
		}
	}
	return out
}

func addToBand(bands []model.Band, v float64) {
	for i := range bands {
		if v <= bands[i].Max {
			bands[i].Count++
			return
		}
	}
	if len(bands) > 0 {
		bands[len(bands)-1].Count++
	}
}
