package chart

import (
	"strconv"

	"rrtimeline/internal/models"
	"rrtimeline/internal/scene"
)

// Diff reports what one reconciliation pass did.
type Diff struct {
	Entered []string `json:"entered"`
	Updated []string `json:"updated"`
	Exited  []string `json:"exited"`

	BarsEntered int `json:"bars_entered"`
	BarsUpdated int `json:"bars_updated"`
	BarsExited  int `json:"bars_exited"`
}

// Empty reports whether the pass changed nothing.
func (d Diff) Empty() bool {
	return len(d.Entered) == 0 && len(d.Updated) == 0 && len(d.Exited) == 0 &&
		d.BarsEntered == 0 && d.BarsUpdated == 0 && d.BarsExited == 0
}

type processGroup struct {
	name string
	node *scene.Node
	bars []*scene.Node
}

// groupRecords buckets records by process, keeping first-seen process order
// and the original interval order within each process.
func groupRecords(records []models.IntervalRecord) (map[string][]models.IntervalRecord, []string) {
	byProcess := make(map[string][]models.IntervalRecord)
	order := make([]string, 0)
	for _, r := range records {
		if _, ok := byProcess[r.ProcessName]; !ok {
			order = append(order, r.ProcessName)
		}
		byProcess[r.ProcessName] = append(byProcess[r.ProcessName], r)
	}
	return byProcess, order
}

// reconcile diffs records against the rendered groups. Groups are keyed by
// process name; bars inside a group are matched by index only.
// The caller holds c.mu.
func (c *Chart) reconcile(records []models.IntervalRecord) Diff {
	byProcess, order := groupRecords(records)
	var diff Diff

	for _, name := range c.order {
		if _, ok := byProcess[name]; ok {
			continue
		}
		g := c.groups[name]
		diff.Exited = append(diff.Exited, name)
		diff.BarsExited += len(g.bars)
		c.removeGroup(g)
	}

	for _, name := range order {
		intervals := byProcess[name]
		gx := c.scales.X.Map(intervals[0].StartTime)
		gy, _ := c.scales.Y.Map(name)
		gy -= c.layout.BarHeight

		g, ok := c.groups[name]
		if !ok {
			g = &processGroup{name: name}
			g.node = c.layer.AppendNew("g").
				Classed("process", true).
				SetAttr("data-process", name).
				SetNum(scene.TranslateX, gx).
				SetNum(scene.TranslateY, gy)
			c.groups[name] = g
			diff.Entered = append(diff.Entered, name)
		} else {
			c.scheduler.Animate(g.node, map[string]float64{
				scene.TranslateX: gx,
				scene.TranslateY: gy,
			}, c.layout.Duration)
			diff.Updated = append(diff.Updated, name)
		}
		c.reconcileBars(g, intervals, gx, &diff)
	}

	c.order = order
	return diff
}

func (c *Chart) reconcileBars(g *processGroup, intervals []models.IntervalRecord, gx float64, diff *Diff) {
	for i, rec := range intervals {
		x := c.scales.X.Map(rec.StartTime) - gx
		width := c.scales.X.Map(rec.EndTime - rec.StartTime)

		if i < len(g.bars) {
			bar := g.bars[i]
			setInterval(bar, rec)
			c.scheduler.Animate(bar, map[string]float64{"x": x, "width": width}, c.layout.Duration)
			diff.BarsUpdated++
			continue
		}

		bar := g.node.AppendNew("rect").Classed("bar", true)
		setInterval(bar, rec)
		bar.SetNum("x", x).
			SetNum("height", c.layout.BarHeight).
			SetNum("width", width).
			SetStyle("fill", c.layout.Fill).
			SetStyle("stroke", c.layout.Stroke).
			SetStyle("stroke-width", c.layout.StrokeWidth)
		g.bars = append(g.bars, bar)
		diff.BarsEntered++
	}

	if len(g.bars) > len(intervals) {
		for _, bar := range g.bars[len(intervals):] {
			c.scheduler.Cancel(bar)
			bar.Remove()
			diff.BarsExited++
		}
		g.bars = g.bars[:len(intervals)]
	}
}

func (c *Chart) removeGroup(g *processGroup) {
	for _, bar := range g.bars {
		c.scheduler.Cancel(bar)
	}
	c.scheduler.Cancel(g.node)
	g.node.Remove()
	delete(c.groups, g.name)
}

func setInterval(bar *scene.Node, rec models.IntervalRecord) {
	bar.SetAttr("data-start", strconv.FormatFloat(rec.StartTime, 'f', -1, 64))
	bar.SetAttr("data-end", strconv.FormatFloat(rec.EndTime, 'f', -1, 64))
}
