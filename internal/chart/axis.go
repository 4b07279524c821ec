package chart

import (
	"rrtimeline/internal/scene"
)

const (
	tickSize    = 6
	tickPadding = 3
	pixelOffset = 0.5
)

// Orientation selects which side of the plot an axis is drawn on.
type Orientation int

const (
	Bottom Orientation = iota
	Left
)

// tickSource is what an axis needs from a scale.
type tickSource interface {
	AxisTicks() []Tick
	Extent() (float64, float64)
}

// Axis owns one long-lived axis group. Render replaces its contents.
type Axis struct {
	orient Orientation
	group  *scene.Node
}

// NewAxis wraps an existing group element.
func NewAxis(group *scene.Node, orient Orientation) *Axis {
	group.SetAttr("fill", "none").
		SetAttr("font-size", "10").
		SetAttr("font-family", "sans-serif")
	if orient == Left {
		group.SetAttr("text-anchor", "end")
	} else {
		group.SetAttr("text-anchor", "middle")
	}
	return &Axis{orient: orient, group: group}
}

// Group returns the axis element.
func (a *Axis) Group() *scene.Node { return a.group }

// Render redraws the domain line and every tick for scale.
func (a *Axis) Render(scale tickSource) {
	a.group.RemoveChildren()

	r0, r1 := scale.Extent()
	a.group.AppendNew("path").
		Classed("domain", true).
		SetAttr("stroke", "currentColor").
		SetAttr("d", a.domainPath(r0, r1))

	for _, t := range scale.AxisTicks() {
		tick := a.group.AppendNew("g").Classed("tick", true).SetAttr("opacity", "1")
		line := tick.AppendNew("line").SetAttr("stroke", "currentColor")
		text := tick.AppendNew("text").SetAttr("fill", "currentColor").SetText(t.Label)

		switch a.orient {
		case Left:
			tick.SetNum(scene.TranslateX, 0).SetNum(scene.TranslateY, t.Position+pixelOffset)
			line.SetNum("x2", -tickSize)
			text.SetNum("x", -(tickSize + tickPadding)).SetAttr("dy", "0.32em")
		default:
			tick.SetNum(scene.TranslateX, t.Position+pixelOffset).SetNum(scene.TranslateY, 0)
			line.SetNum("y2", tickSize)
			text.SetNum("y", tickSize+tickPadding).SetAttr("dy", "0.71em")
		}
	}
}

// TickLabels returns the labels currently drawn, in order.
func (a *Axis) TickLabels() []string {
	var out []string
	for _, child := range a.group.Children() {
		if !child.HasClass("tick") {
			continue
		}
		for _, c := range child.Children() {
			if c.Tag == "text" {
				out = append(out, c.Text)
			}
		}
	}
	return out
}

func (a *Axis) domainPath(r0, r1 float64) string {
	f := scene.FormatNumber
	if a.orient == Left {
		return "M" + f(-tickSize) + "," + f(r0+pixelOffset) + "H" + f(pixelOffset) +
			"V" + f(r1+pixelOffset) + "H" + f(-tickSize)
	}
	return "M" + f(r0+pixelOffset) + "," + f(tickSize) + "V" + f(pixelOffset) +
		"H" + f(r1+pixelOffset) + "V" + f(tickSize)
}
