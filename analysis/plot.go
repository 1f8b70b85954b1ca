package analysis

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/wcharczuk/go-chart/v2"
)

// Plot file names.
const (
	ROCPlot          = "ROC.png"
	PRCPlot          = "PRC.png"
	ORPercentilePlot = "ORpercentile.png"
	PearsonPlot      = "pearson.png"
	SpearmanPlot     = "spearman.png"
	PercentilePlot   = "percentile.png"
)

const (
	plotWidth  = 800
	plotHeight = 600
)

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// Plot renders the PNG figures of the report into dir. A figure that cannot
// be rendered is logged and skipped.
func (r *Report) Plot(dir string) {
	switch r.Method {
	case prediction.Classification:
		diagonal := chart.ContinuousSeries{
			Name:    "random",
			Style:   chart.Style{StrokeColor: chart.ColorAlternateLightGray, StrokeDashArray: []float64{5, 5}},
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
		}
		savePlot(filepath.Join(dir, ROCPlot), lineChart("ROC", "False positive rate", "True positive rate",
			append(r.curveSeries(r.ROC, r.AUC, "AUC"), diagonal)))
		savePlot(filepath.Join(dir, PRCPlot), lineChart("PRC", "Recall", "Precision",
			r.curveSeries(r.PRC, r.AP, "AP")))

		or := make(map[string][2][]float64, len(r.Tools))
		for _, row := range r.OddsRatios {
			xy := or[row.Tool]
			xy[0], xy[1] = append(xy[0], row.Percentile), append(xy[1], row.OR)
			or[row.Tool] = xy
		}
		savePlot(filepath.Join(dir, ORPercentilePlot), lineChart("percentile of OR", "Percentile", "OR",
			r.toolSeries(or)))

	case prediction.Regression:
		savePlot(filepath.Join(dir, PearsonPlot), r.barChart("Pearson", r.Pearson))
		savePlot(filepath.Join(dir, SpearmanPlot), r.barChart("Spearman", r.Spearman))

		mean := make(map[string][2][]float64, len(r.Tools))
		for _, row := range r.Phenotype {
			xy := mean[row.Tool]
			xy[0], xy[1] = append(xy[0], row.Percentile), append(xy[1], row.Mean)
			mean[row.Tool] = xy
		}
		savePlot(filepath.Join(dir, PercentilePlot), lineChart("percentile", "Percentile", "Phenotype",
			r.toolSeries(mean)))
	}
}

func (r *Report) curveSeries(curves map[string]Curve, area map[string]float64, metric string) []chart.Series {
	out := make([]chart.Series, 0, len(r.Tools))
	for _, tool := range r.Tools {
		c := curves[tool]
		if len(c.X) == 0 {
			continue
		}
		out = append(out, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (%s=%.3f)", tool, metric, area[tool]),
			XValues: c.X,
			YValues: c.Y,
		})
	}

	return out
}

func (r *Report) toolSeries(xy map[string][2][]float64) []chart.Series {
	out := make([]chart.Series, 0, len(r.Tools))
	for _, tool := range r.Tools {
		x, y := finite(xy[tool][0], xy[tool][1])
		if len(x) == 0 {
			continue
		}
		out = append(out, chart.ContinuousSeries{Name: tool, XValues: x, YValues: y})
	}

	return out
}

func (r *Report) barChart(title string, values map[string]Correlation) renderer {
	bars := make([]chart.Value, 0, len(r.Tools))
	for _, tool := range r.Tools {
		v := values[tool].R
		if math.IsNaN(v) {
			continue
		}
		bars = append(bars, chart.Value{Label: tool, Value: v})
	}

	return chart.BarChart{
		Title:        title,
		Width:        plotWidth,
		Height:       plotHeight,
		BarWidth:     40,
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}
}

func lineChart(title, xName, yName string, series []chart.Series) renderer {
	graph := chart.Chart{
		Title:  title,
		Width:  plotWidth,
		Height: plotHeight,
		XAxis:  chart.XAxis{Name: xName},
		YAxis:  chart.YAxis{Name: yName},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph
}

func savePlot(path string, graph renderer) {
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		log.Printf("Skip %s: %v\n", filepath.Base(path), err)
		return
	}

	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		log.Printf("Skip %s: %v\n", filepath.Base(path), err)
	}
}

func finite(x, y []float64) ([]float64, []float64) {
	fx, fy := make([]float64, 0, len(x)), make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		fx, fy = append(fx, x[i]), append(fy, y[i])
	}

	return fx, fy
}
