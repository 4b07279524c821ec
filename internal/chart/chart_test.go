package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rrtimeline/internal/models"
	"rrtimeline/internal/scene"
	"rrtimeline/internal/stream"
)

func newMountedChart(t *testing.T) (*Chart, *manualClock, *scene.Document) {
	t.Helper()
	clock := newManualClock()
	c := New(DefaultLayout(), clock, zaptest.NewLogger(t))
	doc := scene.NewDocument(DefaultHostID)
	require.True(t, c.Mount(doc, DefaultHostID))
	return c, clock, doc
}

func entry(name string, starts, ends []float64) models.ProcessEntry {
	return models.ProcessEntry{Process: name, TimeStarts: starts, TimeEnds: ends}
}

func TestFlatten_PreservesOrder(t *testing.T) {
	records := Flatten([]models.ProcessEntry{
		entry("P0", []float64{0, 6}, []float64{2, 8}),
		entry("P1", []float64{2}, []float64{6}),
	})

	assert.Equal(t, []models.IntervalRecord{
		{ProcessName: "P0", StartTime: 0, EndTime: 2},
		{ProcessName: "P0", StartTime: 6, EndTime: 8},
		{ProcessName: "P1", StartTime: 2, EndTime: 6},
	}, records)
}

func TestFlatten_TruncatesMismatchedArrays(t *testing.T) {
	records := Flatten([]models.ProcessEntry{entry("P0", []float64{0, 4}, []float64{3})})
	assert.Equal(t, []models.IntervalRecord{{ProcessName: "P0", StartTime: 0, EndTime: 3}}, records)

	records = Flatten([]models.ProcessEntry{entry("P1", nil, []float64{1, 2})})
	assert.Empty(t, records)
}

func TestChart_EmptySnapshot(t *testing.T) {
	c, _, _ := newMountedChart(t)

	diff := c.Update(Flatten(nil))

	assert.True(t, diff.Empty())
	assert.Empty(t, c.Groups())
	assert.Equal(t, [2]float64{0, 0}, c.Scales().X.Domain)
	assert.Empty(t, c.Scales().Y.Domain)
	assert.NotContains(t, c.SVG(), "<rect")

	xLabels, yLabels := c.AxisLabels()
	assert.Equal(t, []string{"0"}, xLabels)
	assert.Empty(t, yLabels)
}

func TestChart_SingleInterval(t *testing.T) {
	c, _, _ := newMountedChart(t)
	records := Flatten([]models.ProcessEntry{entry("P0", []float64{2}, []float64{5})})
	require.Equal(t, []models.IntervalRecord{{ProcessName: "P0", StartTime: 2, EndTime: 5}}, records)

	diff := c.Update(records)

	assert.Equal(t, []string{"P0"}, diff.Entered)
	assert.Equal(t, 1, diff.BarsEntered)

	x := c.Scales().X
	g, ok := c.Group("P0")
	require.True(t, ok)
	require.Len(t, g.Bars, 1)
	assert.Equal(t, x.Map(3), g.Bars[0].Width)
	assert.Equal(t, x.Map(2), g.Bars[0].X)
	assert.Equal(t, 10.0, g.Bars[0].Height)
	assert.Equal(t, 210.0-10, g.Y, "bar bottom sits on the category tick")
	assert.False(t, g.Animating)
	assert.Equal(t, 0, c.Animating())

	svg := c.SVG()
	assert.Contains(t, svg, `style="fill: red; stroke: black; stroke-width: 1px;"`)
	assert.Contains(t, svg, `width="960" height="480"`)
	assert.Contains(t, svg, `class="plot" transform="translate(30,30)"`)
}

func TestChart_EnterUpdateExit(t *testing.T) {
	c, clock, _ := newMountedChart(t)

	c.Update(Flatten([]models.ProcessEntry{
		entry("P0", []float64{0}, []float64{4}),
		entry("P1", []float64{4}, []float64{8}),
	}))
	before, _ := c.Group("P1")

	diff := c.Update(Flatten([]models.ProcessEntry{
		entry("P1", []float64{4}, []float64{8}),
		entry("P2", []float64{8}, []float64{10}),
	}))

	assert.Equal(t, []string{"P0"}, diff.Exited)
	assert.Equal(t, []string{"P1"}, diff.Updated)
	assert.Equal(t, []string{"P2"}, diff.Entered)
	assert.Equal(t, 1, diff.BarsExited)
	assert.Equal(t, 1, diff.BarsUpdated)
	assert.Equal(t, 1, diff.BarsEntered)

	_, ok := c.Group("P0")
	assert.False(t, ok, "exiting groups are removed immediately")
	assert.NotContains(t, c.SVG(), `data-process="P0"`)

	p1, _ := c.Group("P1")
	assert.True(t, p1.Animating)
	assert.Equal(t, before.Y, p1.Y, "update does not snap")

	x := c.Scales().X
	p2, _ := c.Group("P2")
	assert.False(t, p2.Animating)
	assert.Equal(t, x.Map(8), p2.X)
	assert.Equal(t, 420.0-10, p2.Y)

	clock.Advance(500 * time.Millisecond)
	assert.False(t, c.Advance())
	p1, _ = c.Group("P1")
	assert.Equal(t, -10.0, p1.Y)
	assert.Equal(t, x.Map(4), p1.X)
}

func TestChart_PositionalDiffShrink(t *testing.T) {
	c, _, _ := newMountedChart(t)
	c.Update(Flatten([]models.ProcessEntry{
		entry("P0", []float64{0, 5, 10}, []float64{2, 7, 12}),
	}))

	diff := c.Update(Flatten([]models.ProcessEntry{
		entry("P0", []float64{10}, []float64{12}),
	}))

	assert.Equal(t, 1, diff.BarsUpdated)
	assert.Equal(t, 2, diff.BarsExited)
	assert.Equal(t, 0, diff.BarsEntered)

	g, _ := c.Group("P0")
	require.Len(t, g.Bars, 1)
	assert.True(t, g.Bars[0].Animating, "index 0 is an update even though its interval changed")
	assert.Equal(t, 1, strings.Count(c.SVG(), "<rect"))

	c.Finish()
	g, _ = c.Group("P0")
	x := c.Scales().X
	assert.Equal(t, x.Map(10), g.Bars[0].X)
	assert.Equal(t, x.Map(2), g.Bars[0].Width)
}

func TestChart_PositionalDiffGrow(t *testing.T) {
	c, _, _ := newMountedChart(t)
	c.Update(Flatten([]models.ProcessEntry{entry("P0", []float64{0}, []float64{2})}))

	diff := c.Update(Flatten([]models.ProcessEntry{
		entry("P0", []float64{0, 5, 10}, []float64{2, 7, 12}),
	}))

	assert.Equal(t, 1, diff.BarsUpdated)
	assert.Equal(t, 2, diff.BarsEntered)
	assert.Equal(t, 0, diff.BarsExited)

	g, _ := c.Group("P0")
	require.Len(t, g.Bars, 3)
	assert.True(t, g.Bars[0].Animating)
	assert.False(t, g.Bars[1].Animating)
	assert.False(t, g.Bars[2].Animating)

	x := c.Scales().X
	assert.Equal(t, x.Map(5), g.Bars[1].X)
	assert.Equal(t, x.Map(2), g.Bars[2].Width)
}

func TestChart_TransitionInterrupted(t *testing.T) {
	c, clock, _ := newMountedChart(t)
	snapshot := func(p1End float64) []models.IntervalRecord {
		return Flatten([]models.ProcessEntry{
			entry("P0", []float64{0}, []float64{10}),
			entry("P1", []float64{0}, []float64{p1End}),
		})
	}

	c.Update(snapshot(100))
	g, _ := c.Group("P0")
	assert.Equal(t, 90.0, g.Bars[0].Width)

	c.Update(snapshot(50))
	clock.Advance(250 * time.Millisecond)
	c.Advance()
	g, _ = c.Group("P0")
	assert.InDelta(t, 135, g.Bars[0].Width, 1e-9)

	c.Update(snapshot(20))
	assert.Equal(t, 4, c.Animating(), "one transition per element, no backlog")

	clock.Advance(250 * time.Millisecond)
	c.Advance()
	g, _ = c.Group("P0")
	assert.Less(t, g.Bars[0].Width, 450.0)

	clock.Advance(250 * time.Millisecond)
	assert.False(t, c.Advance())
	g, _ = c.Group("P0")
	assert.Equal(t, 450.0, g.Bars[0].Width)
	assert.Equal(t, 0, c.Animating())
}

func TestChart_AxesAreReusedAcrossPasses(t *testing.T) {
	c, _, doc := newMountedChart(t)

	for _, end := range []float64{5, 100, 7.3} {
		c.Update(Flatten([]models.ProcessEntry{entry("P0", []float64{0}, []float64{end})}))
	}

	host := doc.ElementByID(DefaultHostID)
	axes := host.FindAll(func(n *scene.Node) bool { return n.HasClass("axis") })
	assert.Len(t, axes, 2)
	assert.Len(t, host.FindAll(func(n *scene.Node) bool { return n.Tag == "svg" }), 1)

	xLabels, yLabels := c.AxisLabels()
	assert.Equal(t, "8", xLabels[len(xLabels)-1])
	assert.Equal(t, []string{"P0"}, yLabels)
	assert.Equal(t, [2]float64{0, 8}, c.Scales().X.Domain)
}

func TestChart_MissingHostIsNoop(t *testing.T) {
	c := New(DefaultLayout(), newManualClock(), zaptest.NewLogger(t))
	doc := scene.NewDocument("elsewhere")

	assert.False(t, c.Mount(doc, DefaultHostID))
	diff := c.Update(Flatten([]models.ProcessEntry{entry("P0", []float64{0}, []float64{1})}))

	assert.True(t, diff.Empty())
	assert.False(t, c.Mounted())
	assert.Equal(t, "", c.SVG())
	assert.Empty(t, c.Groups())
}

func TestChart_Unmount(t *testing.T) {
	c, _, doc := newMountedChart(t)
	c.Update(Flatten([]models.ProcessEntry{entry("P0", []float64{0}, []float64{1})}))
	c.Update(Flatten([]models.ProcessEntry{entry("P0", []float64{0}, []float64{2})}))
	rev := c.Revision()

	c.Unmount()

	assert.False(t, c.Mounted())
	assert.Empty(t, doc.ElementByID(DefaultHostID).Children())
	assert.Equal(t, 0, c.Animating())
	assert.Empty(t, c.Bound())
	assert.Greater(t, c.Revision(), rev)

	require.True(t, c.Mount(doc, DefaultHostID))
	assert.Len(t, doc.ElementByID(DefaultHostID).Children(), 1)
}

func TestBind_UpdatesOnEverySnapshot(t *testing.T) {
	c, _, _ := newMountedChart(t)
	src := stream.NewBehaviorSubject([]models.ProcessEntry{entry("P0", []float64{0}, []float64{3})})

	cancel := Bind(src, c)
	assert.Len(t, c.Bound(), 1)

	src.Next([]models.ProcessEntry{
		entry("P0", []float64{0, 4}, []float64{3, 6}),
		entry("P1", []float64{3}, []float64{4}),
	})
	assert.Len(t, c.Bound(), 3)

	cancel()
	src.Next(nil)
	assert.Len(t, c.Bound(), 3)
}
