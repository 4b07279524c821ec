package chart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rrtimeline/internal/logutil"
	"rrtimeline/internal/models"
	"rrtimeline/internal/scene"
	"rrtimeline/internal/transition"
)

// DefaultHostID is the id of the container the chart mounts into.
const DefaultHostID = "chart"

// Margins around the plot area.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Layout fixes the drawing surface geometry and bar styling.
type Layout struct {
	Width       float64
	Height      float64
	Margin      Margins
	BarHeight   float64
	Duration    time.Duration
	Fill        string
	Stroke      string
	StrokeWidth string
}

// DefaultLayout is a 960x480 surface with 30 unit margins and 10 unit bars.
func DefaultLayout() Layout {
	return Layout{
		Width:       960,
		Height:      480,
		Margin:      Margins{Top: 30, Right: 30, Bottom: 30, Left: 30},
		BarHeight:   10,
		Duration:    transition.DefaultDuration,
		Fill:        "red",
		Stroke:      "black",
		StrokeWidth: "1px",
	}
}

// PlotWidth is the width available to bars.
func (l Layout) PlotWidth() float64 { return l.Width - l.Margin.Left - l.Margin.Right }

// PlotHeight is the height available to bars.
func (l Layout) PlotHeight() float64 { return l.Height - l.Margin.Top - l.Margin.Bottom }

// Chart owns a timeline scene: one svg, two axes and a group per process.
// All methods are safe for concurrent use; they are serialised so that the
// scene has exactly one writer at a time.
type Chart struct {
	mu        sync.Mutex
	layout    Layout
	logger    *zap.Logger
	scheduler *transition.Scheduler

	svg   *scene.Node
	layer *scene.Node
	xAxis *Axis
	yAxis *Axis

	scales   Scales
	bound    []models.IntervalRecord
	groups   map[string]*processGroup
	order    []string
	revision uint64
}

// New creates an unmounted chart.
func New(layout Layout, clock transition.Clock, logger *zap.Logger) *Chart {
	return &Chart{
		layout:    layout,
		logger:    logutil.OrNop(logger).Named("chart"),
		scheduler: transition.NewScheduler(clock),
		groups:    make(map[string]*processGroup),
	}
}

// Mount creates the drawing surface inside the element with hostID. When no
// such element exists the chart stays unmounted and every later call is a
// no-op.
func (c *Chart) Mount(doc *scene.Document, hostID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svg != nil {
		return true
	}
	host := doc.ElementByID(hostID)
	if host == nil {
		c.logger.Warn("chart host not found, rendering skipped", zap.String("host", hostID))
		return false
	}

	l := c.layout
	c.svg = host.AppendNew("svg").
		SetAttr("xmlns", "http://www.w3.org/2000/svg").
		SetNum("width", l.Width).
		SetNum("height", l.Height)
	plot := c.svg.AppendNew("g").
		Classed("plot", true).
		SetNum(scene.TranslateX, l.Margin.Left).
		SetNum(scene.TranslateY, l.Margin.Top)
	xGroup := plot.AppendNew("g").Classed("x", true).Classed("axis", true).
		SetNum(scene.TranslateX, 0).
		SetNum(scene.TranslateY, l.PlotHeight())
	yGroup := plot.AppendNew("g").Classed("y", true).Classed("axis", true)
	c.layer = plot.AppendNew("g").Classed("processes", true)

	c.xAxis = NewAxis(xGroup, Bottom)
	c.yAxis = NewAxis(yGroup, Left)

	c.scales = ComputeScales(nil, l.PlotWidth(), l.PlotHeight())
	c.xAxis.Render(c.scales.X)
	c.yAxis.Render(c.scales.Y)
	c.revision++

	c.logger.Debug("chart mounted", zap.String("host", hostID))
	return true
}

// Update runs one pass of the pipeline: recompute scales, redraw axes, then
// reconcile bars and start transitions for updated elements.
func (c *Chart) Update(records []models.IntervalRecord) Diff {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svg == nil {
		return Diff{}
	}

	scales := ComputeScales(records, c.layout.PlotWidth(), c.layout.PlotHeight())
	scales.X = scales.X.Nice(defaultTickCount)
	c.scales = scales

	c.yAxis.Render(scales.Y)
	c.xAxis.Render(scales.X)

	diff := c.reconcile(records)
	c.bound = append([]models.IntervalRecord(nil), records...)
	c.revision++

	c.logger.Debug("chart updated",
		zap.Int("records", len(records)),
		zap.Strings("entered", diff.Entered),
		zap.Strings("updated", diff.Updated),
		zap.Strings("exited", diff.Exited),
		zap.Int("bars_entered", diff.BarsEntered),
		zap.Int("bars_updated", diff.BarsUpdated),
		zap.Int("bars_exited", diff.BarsExited),
	)
	return diff
}

// Advance applies running transitions at the current clock time. It
// reports whether any are still in flight.
func (c *Chart) Advance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduler.Active() == 0 {
		return false
	}
	remaining := c.scheduler.Tick()
	c.revision++
	return remaining > 0
}

// Finish completes every running transition.
func (c *Chart) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduler.Active() == 0 {
		return
	}
	c.scheduler.Finish()
	c.revision++
}

// Run advances transitions every frame until ctx is cancelled.
func (c *Chart) Run(ctx context.Context, frame time.Duration) {
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Advance()
		case <-ctx.Done():
			return
		}
	}
}

// Unmount tears the scene down. The chart can be mounted again afterwards.
func (c *Chart) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svg == nil {
		return
	}
	for _, g := range c.groups {
		c.removeGroup(g)
	}
	c.svg.Remove()
	c.svg, c.layer, c.xAxis, c.yAxis = nil, nil, nil, nil
	c.order = nil
	c.bound = nil
	c.revision++
	c.logger.Debug("chart unmounted")
}

// Mounted reports whether the chart has a drawing surface.
func (c *Chart) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.svg != nil
}

// SVG serialises the drawing surface, or returns "" when unmounted.
func (c *Chart) SVG() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svg == nil {
		return ""
	}
	return c.svg.String()
}

// Revision increases every time the scene changes.
func (c *Chart) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Scales returns the scales used by the latest pass.
func (c *Chart) Scales() Scales {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scales
}

// Bound returns a copy of the records currently rendered.
func (c *Chart) Bound() []models.IntervalRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.IntervalRecord(nil), c.bound...)
}

// Animating reports the number of running transitions.
func (c *Chart) Animating() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler.Active()
}

// AxisLabels returns the tick labels of the time and process axes.
func (c *Chart) AxisLabels() (x, y []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svg == nil {
		return nil, nil
	}
	return c.xAxis.TickLabels(), c.yAxis.TickLabels()
}

// GroupView is a read-only snapshot of one process group.
type GroupView struct {
	Process   string
	X, Y      float64
	Animating bool
	Bars      []BarView
}

// BarView is a read-only snapshot of one bar. X is the absolute horizontal
// offset within the plot.
type BarView struct {
	X, Width, Height float64
	Animating        bool
}

// Groups returns the rendered groups in current process order.
func (c *Chart) Groups() []GroupView {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]GroupView, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.viewLocked(c.groups[name]))
	}
	return out
}

// Group returns the view of one process group.
func (c *Chart) Group(process string) (GroupView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[process]
	if !ok {
		return GroupView{}, false
	}
	return c.viewLocked(g), true
}

func (c *Chart) viewLocked(g *processGroup) GroupView {
	gx := g.node.Num(scene.TranslateX)
	view := GroupView{
		Process:   g.name,
		X:         gx,
		Y:         g.node.Num(scene.TranslateY),
		Animating: c.scheduler.Animating(g.node),
		Bars:      make([]BarView, 0, len(g.bars)),
	}
	for _, bar := range g.bars {
		view.Bars = append(view.Bars, BarView{
			X:         gx + bar.Num("x"),
			Width:     bar.Num("width"),
			Height:    bar.Num("height"),
			Animating: c.scheduler.Animating(bar),
		})
	}
	return view
}
