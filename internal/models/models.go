package models

// ProcessEntry holds the CPU-occupancy intervals of one scheduled process.
// TimeStarts[i] and TimeEnds[i] describe one contiguous interval.
type ProcessEntry struct {
	Process     string    `yaml:"process" json:"process"`
	ArrivalTime float64   `yaml:"arrivalTime,omitempty" json:"arrivalTime,omitempty"`
	TimeStarts  []float64 `yaml:"timeStarts" json:"timeStarts"`
	TimeEnds    []float64 `yaml:"timeEnds" json:"timeEnds"`
}

// Clone returns a deep copy so callers never share the backing arrays.
func (e ProcessEntry) Clone() ProcessEntry {
	out := e
	if e.TimeStarts != nil {
		out.TimeStarts = append([]float64(nil), e.TimeStarts...)
	}
	if e.TimeEnds != nil {
		out.TimeEnds = append([]float64(nil), e.TimeEnds...)
	}
	return out
}

// CloneEntries deep-copies a snapshot of entries.
func CloneEntries(entries []ProcessEntry) []ProcessEntry {
	if entries == nil {
		return nil
	}
	out := make([]ProcessEntry, len(entries))
	for i, entry := range entries {
		out[i] = entry.Clone()
	}
	return out
}

// IntervalRecord is a single flattened occupancy interval.
type IntervalRecord struct {
	ProcessName string  `json:"processName"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
}

// Stats carries the latest derived scheduling statistics.
type Stats struct {
	AverageWaitingTime    float64 `json:"average_waiting_time"`
	AverageTurnaroundTime float64 `json:"average_turnaround_time"`
}
