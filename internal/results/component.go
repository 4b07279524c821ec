package results

import (
	"sync"

	"go.uber.org/zap"

	"rrtimeline/internal/chart"
	"rrtimeline/internal/logutil"
	"rrtimeline/internal/models"
	"rrtimeline/internal/scene"
)

// ValueStream is a scalar stream such as a running average.
type ValueStream interface {
	Subscribe(func(float64)) (cancel func())
}

// Sources are the collaborators the results view listens to.
type Sources struct {
	Processes             chart.SnapshotStream
	AverageWaitingTime    ValueStream
	AverageTurnaroundTime ValueStream
}

// Component is the results view: the live timeline chart plus the latest
// scheduling statistics.
type Component struct {
	chart   *chart.Chart
	sources Sources
	hostID  string
	logger  *zap.Logger

	mu      sync.Mutex
	stats   models.Stats
	cancels []func()
	mounted bool
}

// New wires a component around an unmounted chart.
func New(c *chart.Chart, sources Sources, hostID string, logger *zap.Logger) *Component {
	if hostID == "" {
		hostID = chart.DefaultHostID
	}
	return &Component{
		chart:   c,
		sources: sources,
		hostID:  hostID,
		logger:  logutil.OrNop(logger).Named("results"),
	}
}

// Mount subscribes to the statistics streams, mounts the chart into doc and
// binds it to the process stream.
func (c *Component) Mount(doc *scene.Document) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()

	var cancels []func()
	if c.sources.AverageWaitingTime != nil {
		cancels = append(cancels, c.sources.AverageWaitingTime.Subscribe(func(v float64) {
			c.mu.Lock()
			c.stats.AverageWaitingTime = v
			c.mu.Unlock()
		}))
	}
	if c.sources.AverageTurnaroundTime != nil {
		cancels = append(cancels, c.sources.AverageTurnaroundTime.Subscribe(func(v float64) {
			c.mu.Lock()
			c.stats.AverageTurnaroundTime = v
			c.mu.Unlock()
		}))
	}

	if c.chart.Mount(doc, c.hostID) && c.sources.Processes != nil {
		cancels = append(cancels, chart.Bind(c.sources.Processes, c.chart))
	}

	c.mu.Lock()
	c.cancels = cancels
	c.mu.Unlock()
	c.logger.Info("results view mounted", zap.String("host", c.hostID), zap.Bool("chart", c.chart.Mounted()))
}

// Unmount drops every subscription and tears the chart down.
func (c *Component) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	cancels := c.cancels
	c.cancels = nil
	c.mounted = false
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	c.chart.Unmount()
	c.logger.Info("results view unmounted")
}

// Stats returns the latest statistics received.
func (c *Component) Stats() models.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Chart returns the owned chart.
func (c *Component) Chart() *chart.Chart { return c.chart }
