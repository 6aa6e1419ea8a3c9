package calculations

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNoBreakdown is returned when a record has nothing to chart
var ErrNoBreakdown = errors.New("calculation has no breakdown")

// BreakdownChart builds a pie chart of a record's category breakdown
func BreakdownChart(r *Record) (*charts.Pie, error) {
	prediction, breakdown, ok := ParseResults(r)
	if !ok || len(breakdown) == 0 {
		return nil, ErrNoBreakdown
	}

	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([]opts.PieData, 0, len(names))
	for _, name := range names {
		data = append(data, opts.PieData{Name: name, Value: breakdown[name]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title:    "Carbon Footprint Breakdown",
				Subtitle: fmt.Sprintf("%.0f kg CO2e per month", prediction),
			},
		),
	)
	pie.AddSeries("breakdown", data)
	return pie, nil
}

// RenderBreakdownChart writes the chart for a record as an HTML page
func RenderBreakdownChart(w io.Writer, r *Record) error {
	pie, err := BreakdownChart(r)
	if err != nil {
		return err
	}
	return pie.Render(w)
}
