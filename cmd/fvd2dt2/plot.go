package main

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot writes the computed and exact histories to path. The format
// follows the file extension.
func (h *History) SavePlot(path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (run %s)", h.Case, h.RunID[:8])
	p.X.Label.Text = "t"
	p.Y.Label.Text = "φ"

	computed := make(plotter.XYs, len(h.Samples))
	exact := make(plotter.XYs, len(h.Samples))
	for i, s := range h.Samples {
		computed[i] = plotter.XY{X: s.Time, Y: s.Mean}
		exact[i] = plotter.XY{X: s.Time, Y: s.Exact}
	}

	cl, err := plotter.NewLine(computed)
	if err != nil {
		return fmt.Errorf("computed line: %w", err)
	}
	cl.LineStyle.Color = color.RGBA{B: 200, A: 255}
	el, err := plotter.NewLine(exact)
	if err != nil {
		return fmt.Errorf("exact line: %w", err)
	}
	el.LineStyle.Color = color.RGBA{R: 200, A: 255}
	el.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), cl, el)
	p.Legend.Add("d2dt2", cl)
	p.Legend.Add("cos(ωt)", el)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}
