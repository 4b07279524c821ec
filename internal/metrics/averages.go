package metrics

import (
	"math"
	"sync"

	"rrtimeline/internal/models"
	"rrtimeline/internal/stream"
)

// ProcessSummary holds the timing figures of one finished process.
type ProcessSummary struct {
	Process    string  `json:"process"`
	Arrival    float64 `json:"arrival"`
	Burst      float64 `json:"burst"`
	Completion float64 `json:"completion"`
	Turnaround float64 `json:"turnaround"`
	Waiting    float64 `json:"waiting"`
}

// Summarize derives per-process timings from the occupancy intervals. Only
// paired start/end values count; entries without any interval are skipped.
func Summarize(entries []models.ProcessEntry) []ProcessSummary {
	results := make([]ProcessSummary, 0, len(entries))
	for _, entry := range entries {
		n := min(len(entry.TimeStarts), len(entry.TimeEnds))
		if n == 0 {
			continue
		}
		burst := 0.0
		completion := entry.TimeEnds[0]
		for i := 0; i < n; i++ {
			burst += entry.TimeEnds[i] - entry.TimeStarts[i]
			completion = math.Max(completion, entry.TimeEnds[i])
		}
		turnaround := completion - entry.ArrivalTime
		results = append(results, ProcessSummary{
			Process:    entry.Process,
			Arrival:    entry.ArrivalTime,
			Burst:      round2(burst),
			Completion: completion,
			Turnaround: round2(turnaround),
			Waiting:    round2(turnaround - burst),
		})
	}
	return results
}

// Averages returns the mean waiting and turnaround time, zero when empty.
func Averages(summaries []ProcessSummary) (waiting, turnaround float64) {
	if len(summaries) == 0 {
		return 0, 0
	}
	for _, s := range summaries {
		waiting += s.Waiting
		turnaround += s.Turnaround
	}
	n := float64(len(summaries))
	return round2(waiting / n), round2(turnaround / n)
}

// Calculator publishes running averages for a process stream on two
// independent subjects.
type Calculator struct {
	waiting    *stream.Subject[float64]
	turnaround *stream.Subject[float64]

	mu     sync.Mutex
	cancel func()
}

// NewCalculator returns a calculator whose streams start at zero.
func NewCalculator() *Calculator {
	return &Calculator{
		waiting:    stream.NewBehaviorSubject(0.0),
		turnaround: stream.NewBehaviorSubject(0.0),
	}
}

// AverageWaitingTime streams the mean waiting time.
func (c *Calculator) AverageWaitingTime() *stream.Subject[float64] { return c.waiting }

// AverageTurnaroundTime streams the mean turnaround time.
func (c *Calculator) AverageTurnaroundTime() *stream.Subject[float64] { return c.turnaround }

// Bind recomputes both averages on every snapshot from src. Binding again
// replaces the previous source.
func (c *Calculator) Bind(src *stream.Subject[[]models.ProcessEntry]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = src.Subscribe(func(entries []models.ProcessEntry) {
		waiting, turnaround := Averages(Summarize(entries))
		c.waiting.Next(waiting)
		c.turnaround.Next(turnaround)
	})
}

// Stop detaches the calculator from its source.
func (c *Calculator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
