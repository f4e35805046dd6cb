// Package report renders study output for humans: an interactive chart
// of the discovered boxes and static plots of the peeling trajectory.
package report

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/scenariolab/workbench/internal/discovery"
)

// WriteBoxReport renders an interactive scatter (HTML) of the discovered
// boxes in the coverage/density plane, coloured by mass. Hovering a point
// shows the box's restrictions.
func WriteBoxReport(w io.Writer, boxes []discovery.Box) error {
	data := make([]opts.ScatterData, 0, len(boxes))
	maxMass := 0.0
	for i, b := range boxes {
		if b.Mass > maxMass {
			maxMass = b.Mass
		}
		data = append(data, opts.ScatterData{
			Name:  fmt.Sprintf("box %d: %s", i+1, b),
			Value: []interface{}{b.Coverage, b.Density, b.Mass},
		})
	}
	if maxMass == 0 {
		maxMass = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scenario Discovery", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Discovered Boxes", Subtitle: fmt.Sprintf("boxes=%d", len(boxes))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: 1, Name: "Coverage", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Density", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxMass),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("boxes", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))

	return scatter.Render(w)
}

// SavePeelTrajectory plots the density/coverage path the peeling loop
// took and saves it to path; the image format follows the extension
// (.png, .svg, .pdf).
func SavePeelTrajectory(path string, traj discovery.Trajectory) error {
	if len(traj) == 0 {
		return fmt.Errorf("empty trajectory")
	}

	p := plot.New()
	p.Title.Text = "Peeling Trajectory"
	p.X.Label.Text = "Coverage"
	p.Y.Label.Text = "Density"
	p.X.Min, p.X.Max = 0, 1.05
	p.Y.Min, p.Y.Max = 0, 1.05

	pts := make(plotter.XYs, len(traj))
	for i, step := range traj {
		pts[i] = plotter.XY{X: step.Coverage, Y: step.Density}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build trajectory line: %w", err)
	}
	line.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}

	points, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build trajectory points: %w", err)
	}
	points.GlyphStyle.Radius = vg.Points(2.5)
	points.GlyphStyle.Color = color.RGBA{R: 53, G: 183, B: 121, A: 255}

	p.Add(line, points)
	p.Legend.Add("peel steps", line)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}

// Summary formats the discovered boxes as plain text, one box per line.
func Summary(boxes []discovery.Box) string {
	if len(boxes) == 0 {
		return "no boxes discovered\n"
	}
	out := ""
	for i, b := range boxes {
		out += fmt.Sprintf("box %d: %s (density=%.3f coverage=%.3f mass=%.3f)\n",
			i+1, b, b.Density, b.Coverage, b.Mass)
	}
	return out
}
