package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	figureWidth  = 8 * vg.Inch
	figureHeight = 6 * vg.Inch
	barWidth     = vg.Points(24)
	markerRadius = vg.Points(4)
)

// DistanceScatter plots average RTT against great-circle distance, one point
// per host, and saves it to path. The format follows the file extension.
func DistanceScatter(path string, distances, rtts []float64) error {
	if len(distances) != len(rtts) {
		return fmt.Errorf("distance scatter: %d distances for %d rtts", len(distances), len(rtts))
	}
	p := plot.New()
	p.Title.Text = "Distance vs RTT"
	p.X.Label.Text = "Distance (km)"
	p.Y.Label.Text = "Average RTT (ms)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(distances))
	for i := range distances {
		pts[i].X = distances[i]
		pts[i].Y = rtts[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("distance scatter: %w", err)
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = markerRadius
	s.GlyphStyle.Color = plotutil.Color(0)
	p.Add(s)

	return save(p, path)
}

// LatencyBreakdown draws one bar per host with one stacked segment per hop
// increase. Hosts with fewer hops than the longest trace get zero-height
// segments for the missing trailing hops.
func LatencyBreakdown(path string, hosts []string, increases [][]float64) error {
	if len(hosts) != len(increases) {
		return fmt.Errorf("latency breakdown: %d hosts for %d traces", len(hosts), len(increases))
	}
	p := plot.New()
	p.Title.Text = "Latency Breakdown per Hop"
	p.Y.Label.Text = "RTT (ms)"

	var below *plotter.BarChart
	for hop, segment := range stackSegments(increases) {
		bars, err := plotter.NewBarChart(segment, barWidth)
		if err != nil {
			return fmt.Errorf("latency breakdown: hop %d: %w", hop+1, err)
		}
		bars.Color = plotutil.Color(hop)
		bars.LineStyle.Width = 0
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		below = bars
	}
	if len(hosts) > 0 {
		p.NominalX(hosts...)
	}
	return save(p, path)
}

// stackSegments transposes per-host increases into one value row per hop
// index, padding short traces with zeros.
func stackSegments(increases [][]float64) []plotter.Values {
	depth := 0
	for _, inc := range increases {
		depth = max(depth, len(inc))
	}
	segments := make([]plotter.Values, depth)
	for hop := range segments {
		row := make(plotter.Values, len(increases))
		for host, inc := range increases {
			if hop < len(inc) {
				row[host] = inc[hop]
			}
		}
		segments[hop] = row
	}
	return segments
}

// HopVsRTT plots hop count against the last hop's RTT, one coloured point and
// legend entry per host. An empty trace plots at the origin.
func HopVsRTT(path string, hosts []string, hops [][]float64) error {
	if len(hosts) != len(hops) {
		return fmt.Errorf("hop vs rtt: %d hosts for %d traces", len(hosts), len(hops))
	}
	p := plot.New()
	p.Title.Text = "Hop Count vs RTT"
	p.X.Label.Text = "Hop Count"
	p.Y.Label.Text = "Total RTT (ms)"
	p.Add(plotter.NewGrid())

	for i, host := range hosts {
		pt := plotter.XYs{{X: float64(len(hops[i]))}}
		if n := len(hops[i]); n > 0 {
			pt[0].Y = hops[i][n-1]
		}
		s, err := plotter.NewScatter(pt)
		if err != nil {
			return fmt.Errorf("hop vs rtt: %s: %w", host, err)
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = markerRadius
		s.GlyphStyle.Color = plotutil.Color(i)
		p.Add(s)
		p.Legend.Add(host, s)
	}
	p.Legend.Top = true
	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(figureWidth, figureHeight, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
