package analytics

import "math"

// Forecast is a least-squares projection of a mean score series.
type Forecast struct {
	Semesters []string  `json:"semesters,omitempty"`
	History   []float64 `json:"history"`
	Projected []float64 `json:"projected"`
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
}

// LinearForecast fits an ordinary least-squares line over index-vs-value and
// extrapolates periods future points, each clamped to [0,100]. With fewer
// than two points it repeats the single known value, or 0.
func LinearForecast(series []float64, periods int) Forecast {
	if periods <= 0 {
		periods = DefaultForecastPeriods
	}
	f := Forecast{
		History:   append([]float64{}, series...),
		Projected: make([]float64, periods),
	}

	n := len(series)
	if n < 2 {
		v := 0.0
		if n == 1 {
			v = series[0]
		}
		for i := range f.Projected {
			f.Projected[i] = v
		}
		f.Intercept = v
		return f
	}

	var sumY float64
	for _, y := range series {
		sumY += y
	}
	meanX := float64(n-1) / 2
	meanY := sumY / float64(n)

	var num, den float64
	for i, y := range series {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	f.Slope = num / den
	f.Intercept = meanY - f.Slope*meanX

	for i := range f.Projected {
		x := float64(n + i)
		f.Projected[i] = math.Max(0, math.Min(100, f.Intercept+f.Slope*x))
	}
	return f
}
