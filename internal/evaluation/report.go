package evaluation

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteReport renders an HTML page with a mean-accuracy bar chart per
// sequence followed by the per-frame accuracy curves.
func WriteReport(w io.Writer, title string, runs []RunScore) error {
	page := components.NewPage()
	page.PageTitle = title

	for _, seq := range sequences(runs) {
		group := bySequence(runs, seq)
		page.AddCharts(summaryChart(seq, group), frameChart(seq, group, MetricAccuracy), frameChart(seq, group, MetricDelta))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func summaryChart(seq string, runs []RunScore) *charts.Bar {
	names := make([]string, len(runs))
	data := make([]opts.BarData, len(runs))
	for i, r := range runs {
		names[i] = r.Method
		data[i] = opts.BarData{Value: r.MeanAccuracy}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: seq, Subtitle: "mean accuracy (IoU)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	bar.SetXAxis(names).AddSeries("accuracy", data)
	return bar
}

func frameChart(seq string, runs []RunScore, m Metric) *charts.Line {
	frames := 0
	for _, r := range runs {
		if len(r.Frames) > frames {
			frames = len(r.Frames)
		}
	}
	x := make([]int, frames)
	for i := range x {
		x[i] = i
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s - %s", seq, m)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "30px"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: m.label()}),
	)
	line.SetXAxis(x)
	for _, r := range runs {
		data := make([]opts.LineData, len(r.Frames))
		for i, f := range r.Frames {
			data[i] = opts.LineData{Value: m.value(f)}
		}
		line.AddSeries(r.Method, data)
	}
	return line
}
