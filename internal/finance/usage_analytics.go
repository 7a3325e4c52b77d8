package finance

import (
	"fmt"
	"strings"

	"portfolioSimulator/internal/storage"

	"github.com/vicanso/go-charts/v2"
)

// MakeTickerUsageChart renders how often each ticker was simulated.
func MakeTickerUsageChart(counts []storage.TickerCount, days int) ([]byte, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no usage data available")
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}

	values := make([]float64, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
		labels[i] = fmt.Sprintf("%s (%.1f%%)", c.Ticker, float64(c.Count)/float64(total)*100)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Most simulated tickers (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// FormatTickerUsageText creates a plain-text ranking of ticker usage.
func FormatTickerUsageText(counts []storage.TickerCount, days int) string {
	if len(counts) == 0 {
		return "No simulations recorded for the specified period."
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Most simulated tickers (%d days)\n\n", days)
	for i, c := range counts {
		fmt.Fprintf(&b, "%d. %s: %d (%.1f%%)\n", i+1, c.Ticker, c.Count, float64(c.Count)/float64(total)*100)
	}
	return b.String()
}
