package charts

import (
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"airquality-dashboard/internal/modules/airquality/types"
)

// matrixGrid adapts a correlation matrix to plotter.GridXYZ with the first
// column drawn at the top row.
type matrixGrid struct {
	m *types.CorrelationMatrix
}

func (g matrixGrid) Dims() (c, r int) {
	n := len(g.m.Columns)
	return n, n
}

func (g matrixGrid) Z(c, r int) float64 {
	n := len(g.m.Columns)
	return g.m.At(n-1-r, c)
}

func (g matrixGrid) X(c int) float64 { return float64(c) }

func (g matrixGrid) Y(r int) float64 { return float64(r) }

// Correlation draws the matrix as an annotated blue-red heatmap over [-1, 1].
// Undefined (NaN) cells are grey and labelled "n/a".
func Correlation(w io.Writer, m *types.CorrelationMatrix, title string) error {
	n := len(m.Columns)
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	hm := plotter.NewHeatMap(matrixGrid{m: m}, cm.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}

	p := newPlot(title, "", "")
	p.Add(hm)

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	var cells plotter.XYLabels
	for i, c := range m.Columns {
		xTicks[i] = plot.Tick{Value: float64(i), Label: string(c)}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: string(c)}
		for j := range m.Columns {
			v := m.At(i, j)
			label := "n/a"
			if !math.IsNaN(v) {
				label = strconv.FormatFloat(v, 'f', 2, 64)
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			cells.Labels = append(cells.Labels, label)
		}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)

	if n > 0 {
		labels, err := plotter.NewLabels(cells)
		if err != nil {
			return err
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].XAlign = -0.5
			labels.TextStyle[i].YAlign = -0.5
		}
		p.Add(labels)
	}

	side := 14 * vg.Centimeter
	return render(w, p, side, side)
}
