package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vicanso/go-charts/v2"
)

// MakePerformanceChart draws one base-100 line per normalized column.
func MakePerformanceChart(normalized PriceTable, title string) ([]byte, error) {
	if err := normalized.validate(); err != nil {
		return nil, err
	}
	if normalized.Len() == 0 || len(normalized.Columns) == 0 {
		return nil, fmt.Errorf("performance chart: %w", ErrEmptySeries)
	}

	xLabels := make([]string, normalized.Len())
	for i, d := range normalized.Dates {
		if normalized.Len() <= 60 {
			xLabels[i] = d.Format("Jan 02")
		} else {
			xLabels[i] = d.Format("Jan '06")
		}
	}

	minVal, maxVal := normalized.Columns[0][0], normalized.Columns[0][0]
	for _, col := range normalized.Columns {
		for _, v := range col {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	yMax := maxVal + padding

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	seriesList := charts.NewSeriesListDataFromValues(normalized.Columns, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = normalized.Symbols[i]
	}

	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, "Relative performance • base 100"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: normalized.Symbols, Top: charts.PositionBottom}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// MakeRiskReturnChart draws total return and annualized volatility, in
// percent, side by side for every series. The subtitle carries the
// return/volatility ratio used to rank them.
func MakeRiskReturnChart(points []RiskReturnPoint, title string) ([]byte, error) {
	if len(points) == 0 {
		return nil, errors.New("no risk-return points")
	}

	labels := make([]string, len(points))
	returns := make([]float64, len(points))
	vols := make([]float64, len(points))
	ratios := make([]string, len(points))
	for i, pt := range points {
		labels[i] = pt.Symbol
		returns[i] = chartValue(pt.Return * 100)
		vols[i] = chartValue(pt.Volatility * 100)
		if math.IsNaN(pt.Ratio) || math.IsInf(pt.Ratio, 0) {
			ratios[i] = pt.Symbol + " n/a"
		} else {
			ratios[i] = fmt.Sprintf("%s %.2f", pt.Symbol, pt.Ratio)
		}
	}

	p, err := charts.BarRender(
		[][]float64{returns, vols},
		charts.TitleTextOptionFunc(title, "Sharpe-like: "+strings.Join(ratios, " | ")),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"Total return %", "Volatility (annualized) %"},
			Top:  charts.PositionBottom,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// chartValue maps undefined statistics to zero, the painter cannot place NaN.
func chartValue(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
