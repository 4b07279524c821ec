package chart

import (
	"math"
	"strconv"

	"rrtimeline/internal/models"
)

const defaultTickCount = 10

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Tick is one labelled position on an axis.
type Tick struct {
	Position float64
	Label    string
}

// LinearScale maps a continuous domain onto a pixel range.
type LinearScale struct {
	Domain [2]float64
	Range  [2]float64
}

// Map converts a domain value to a pixel coordinate. A degenerate domain
// maps everything to the start of the range.
func (s LinearScale) Map(v float64) float64 {
	d0, d1 := s.Domain[0], s.Domain[1]
	r0, r1 := s.Range[0], s.Range[1]
	if d1 == d0 || math.IsNaN(d1-d0) {
		return r0
	}
	return r0 + (v-d0)/(d1-d0)*(r1-r0)
}

// Nice extends the domain to round tick boundaries, as d3's linear nice.
func (s LinearScale) Nice(count int) LinearScale {
	start, stop := s.Domain[0], s.Domain[1]
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}
	if start == stop {
		return s
	}

	var prestep float64
	for iter := 0; iter < 10; iter++ {
		step := tickIncrement(start, stop, count)
		if step == prestep {
			if reversed {
				start, stop = stop, start
			}
			s.Domain = [2]float64{positiveZero(start), positiveZero(stop)}
			return s
		}
		switch {
		case step > 0:
			start = math.Floor(start/step) * step
			stop = math.Ceil(stop/step) * step
		case step < 0:
			start = math.Ceil(start*step) / step
			stop = math.Floor(stop*step) / step
		default:
			return s
		}
		prestep = step
	}
	return s
}

// Ticks returns evenly spaced, labelled positions across the domain.
func (s LinearScale) Ticks(count int) []Tick {
	values, step := tickValues(s.Domain[0], s.Domain[1], count)
	decimals := tickDecimals(step)
	out := make([]Tick, 0, len(values))
	for _, v := range values {
		out = append(out, Tick{
			Position: s.Map(v),
			Label:    strconv.FormatFloat(positiveZero(v), 'f', decimals, 64),
		})
	}
	return out
}

// AxisTicks implements tickSource with the default tick count.
func (s LinearScale) AxisTicks() []Tick { return s.Ticks(defaultTickCount) }

// Extent implements tickSource.
func (s LinearScale) Extent() (float64, float64) { return s.Range[0], s.Range[1] }

// PointScale spreads a list of categories evenly across a pixel range, with
// no outer padding and centred alignment.
type PointScale struct {
	Domain []string
	Range  [2]float64
	index  map[string]int
}

// NewPointScale builds a point scale. Duplicate categories keep their first
// position.
func NewPointScale(domain []string, r0, r1 float64) PointScale {
	s := PointScale{Range: [2]float64{r0, r1}, index: make(map[string]int, len(domain))}
	for _, name := range domain {
		if _, ok := s.index[name]; ok {
			continue
		}
		s.index[name] = len(s.Domain)
		s.Domain = append(s.Domain, name)
	}
	return s
}

// Step returns the distance between adjacent categories.
func (s PointScale) Step() float64 {
	n := float64(len(s.Domain))
	return (s.Range[1] - s.Range[0]) / math.Max(1, n-1)
}

// Map returns the coordinate for a category and whether it is known.
func (s PointScale) Map(name string) (float64, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, false
	}
	return s.offset() + s.Step()*float64(i), true
}

func (s PointScale) offset() float64 {
	n := float64(len(s.Domain))
	span := s.Range[1] - s.Range[0]
	return s.Range[0] + (span-s.Step()*(n-1))*0.5
}

// AxisTicks implements tickSource, one tick per category.
func (s PointScale) AxisTicks() []Tick {
	out := make([]Tick, 0, len(s.Domain))
	for _, name := range s.Domain {
		pos, _ := s.Map(name)
		out = append(out, Tick{Position: pos, Label: name})
	}
	return out
}

// Extent implements tickSource.
func (s PointScale) Extent() (float64, float64) { return s.Range[0], s.Range[1] }

// Scales is the pair of mappings derived from one snapshot.
type Scales struct {
	X LinearScale
	Y PointScale
}

// ComputeScales derives fresh scales from records. The time domain is
// [0, max(endTime)] and the category domain is the distinct process names in
// first-seen order.
func ComputeScales(records []models.IntervalRecord, plotWidth, plotHeight float64) Scales {
	maxEnd := 0.0
	names := make([]string, 0, len(records))
	for i, r := range records {
		if i == 0 || r.EndTime > maxEnd {
			maxEnd = r.EndTime
		}
		names = append(names, r.ProcessName)
	}
	return Scales{
		X: LinearScale{Domain: [2]float64{0, maxEnd}, Range: [2]float64{0, plotWidth}},
		Y: NewPointScale(names, 0, plotHeight),
	}
}

func tickIncrement(start, stop float64, count int) float64 {
	step := (stop - start) / math.Max(0, float64(count))
	power := math.Floor(math.Log10(step))
	errv := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case errv >= e10:
		factor = 10
	case errv >= e5:
		factor = 5
	case errv >= e2:
		factor = 2
	}
	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}

// tickValues returns the tick values and the absolute step between them.
func tickValues(start, stop float64, count int) ([]float64, float64) {
	if start == stop {
		return []float64{start}, 0
	}
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}
	step := tickIncrement(start, stop, count)
	if step == 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, 0
	}

	var values []float64
	var abs float64
	if step > 0 {
		r0, r1 := math.Ceil(start/step), math.Floor(stop/step)
		for i := r0; i <= r1; i++ {
			values = append(values, i*step)
		}
		abs = step
	} else {
		inv := -step
		r0, r1 := math.Ceil(start*inv), math.Floor(stop*inv)
		for i := r0; i <= r1; i++ {
			values = append(values, i/inv)
		}
		abs = 1 / inv
	}
	if reversed {
		for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
			values[i], values[j] = values[j], values[i]
		}
	}
	return values, abs
}

func tickDecimals(step float64) int {
	if step <= 0 {
		return 0
	}
	d := -int(math.Floor(math.Log10(step) + 1e-9))
	if d < 0 {
		return 0
	}
	return d
}

func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
