package diagnose

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
)

const histogramBins = 20

// WriteProbabilityHistogram saves overlaid histograms of probB, one per
// origin, to path. The format follows the file extension (png, svg, pdf, ...).
func WriteProbabilityHistogram(path string, probB, labels []float64, nameA, nameB string) error {
	if len(probB) != len(labels) {
		return errors.NewDimensionError("WriteProbabilityHistogram", len(labels), len(probB), 0)
	}
	var fromA, fromB plotter.Values
	for i, p := range probB {
		if labels[i] == 0 {
			fromA = append(fromA, p)
		} else {
			fromB = append(fromB, p)
		}
	}

	p := plot.New()
	p.Title.Text = "Predicted probability of " + nameB
	p.X.Label.Text = "P(" + nameB + ")"
	p.Y.Label.Text = "rows"
	p.X.Min, p.X.Max = 0, 1
	p.Legend.Top = true

	series := []struct {
		name   string
		values plotter.Values
		fill   color.Color
	}{
		{nameA, fromA, color.RGBA{R: 20, G: 80, B: 200, A: 140}},
		{nameB, fromB, color.RGBA{R: 200, G: 30, B: 30, A: 140}},
	}
	for _, s := range series {
		if len(s.values) == 0 {
			continue
		}
		h, err := plotter.NewHist(s.values, histogramBins)
		if err != nil {
			return errors.Wrapf(err, "histogram %s", s.name)
		}
		h.FillColor = s.fill
		h.LineStyle.Width = vg.Points(0.5)
		p.Add(h)
		p.Legend.Add(s.name, h)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
