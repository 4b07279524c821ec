package cli

import (
	"time"

	"rrtimeline/internal/chart"
	"rrtimeline/internal/config"
)

func layoutFromConfig(c config.Chart) chart.Layout {
	layout := chart.DefaultLayout()
	if c.Width > 0 {
		layout.Width = c.Width
	}
	if c.Height > 0 {
		layout.Height = c.Height
	}
	if c.Margin >= 0 {
		layout.Margin = chart.Margins{Top: c.Margin, Right: c.Margin, Bottom: c.Margin, Left: c.Margin}
	}
	if c.BarHeight > 0 {
		layout.BarHeight = c.BarHeight
	}
	if c.TransitionMs >= 0 {
		layout.Duration = time.Duration(c.TransitionMs) * time.Millisecond
	}
	if c.Fill != "" {
		layout.Fill = c.Fill
	}
	if c.Stroke != "" {
		layout.Stroke = c.Stroke
	}
	if c.StrokeWidth != "" {
		layout.StrokeWidth = c.StrokeWidth
	}
	return layout
}
