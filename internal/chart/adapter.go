package chart

import "rrtimeline/internal/models"

// SnapshotStream emits the full, current list of process entries on every
// change.
type SnapshotStream interface {
	Subscribe(func([]models.ProcessEntry)) (cancel func())
}

// Flatten turns per-process start/end arrays into one ordered sequence of
// interval records. When a process has more starts than ends (or the other
// way round) the extra values are ignored.
func Flatten(entries []models.ProcessEntry) []models.IntervalRecord {
	records := make([]models.IntervalRecord, 0, len(entries))
	for _, entry := range entries {
		n := min(len(entry.TimeStarts), len(entry.TimeEnds))
		for i := 0; i < n; i++ {
			records = append(records, models.IntervalRecord{
				ProcessName: entry.Process,
				StartTime:   entry.TimeStarts[i],
				EndTime:     entry.TimeEnds[i],
			})
		}
	}
	return records
}

// Bind feeds every snapshot from stream through the chart's update pipeline.
func Bind(stream SnapshotStream, c *Chart) (cancel func()) {
	return stream.Subscribe(func(entries []models.ProcessEntry) {
		c.Update(Flatten(entries))
	})
}
