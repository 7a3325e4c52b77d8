package finance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// ComputePortfolioColumn blends the columns of prices row by row using weights.
// The benchmark must already be excluded from prices.
func ComputePortfolioColumn(prices PriceTable, weights []float64) ([]float64, error) {
	if err := prices.validate(); err != nil {
		return nil, err
	}
	if len(weights) != len(prices.Columns) {
		return nil, fmt.Errorf("%w: %d weights for %d asset columns", ErrShapeMismatch, len(weights), len(prices.Columns))
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no asset columns", ErrShapeMismatch)
	}

	out := make([]float64, prices.Len())
	for row := range out {
		v := 0.0
		for i, col := range prices.Columns {
			v += col[row] * weights[i]
		}
		out[row] = v
	}
	return out, nil
}

// Normalize rebases every column so its first value equals 100.
func Normalize(t PriceTable) (PriceTable, error) {
	if err := t.validate(); err != nil {
		return PriceTable{}, err
	}
	if t.Len() == 0 {
		return PriceTable{}, fmt.Errorf("normalize: %w", ErrEmptySeries)
	}
	out := PriceTable{Dates: t.Dates, Symbols: t.Symbols, Columns: make([][]float64, len(t.Columns))}
	for i, col := range t.Columns {
		base := col[0]
		n := make([]float64, len(col))
		for row, v := range col {
			n[row] = 100 * (v / base) // base/base is exactly 1
		}
		out.Columns[i] = n
	}
	return out, nil
}

// PeriodReturns computes row-over-row fractional change. The first row has
// no predecessor and is dropped, so the result has t.Len()-1 rows.
func PeriodReturns(t PriceTable) (PriceTable, error) {
	if err := t.validate(); err != nil {
		return PriceTable{}, err
	}
	if t.Len() == 0 {
		return PriceTable{}, fmt.Errorf("period returns: %w", ErrEmptySeries)
	}
	out := PriceTable{Dates: t.Dates[1:], Symbols: t.Symbols, Columns: make([][]float64, len(t.Columns))}
	for i, col := range t.Columns {
		r := make([]float64, len(col)-1)
		for row := 1; row < len(col); row++ {
			r[row-1] = (col[row] - col[row-1]) / col[row-1]
		}
		out.Columns[i] = r
	}
	return out, nil
}

// AnnualizedVolatility returns the sample standard deviation of each return
// column scaled by sqrt(252). Columns with fewer than 2 observations are NaN.
func AnnualizedVolatility(returns PriceTable) []float64 {
	out := make([]float64, len(returns.Columns))
	factor := math.Sqrt(TradingDaysPerYear)
	for i, col := range returns.Columns {
		if len(col) < 2 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(col, nil) * factor
	}
	return out
}

// TotalReturnFraction returns (last - 100) / 100 per normalized column.
func TotalReturnFraction(normalized PriceTable) ([]float64, error) {
	if err := normalized.validate(); err != nil {
		return nil, err
	}
	if normalized.Len() == 0 {
		return nil, fmt.Errorf("total return: %w", ErrEmptySeries)
	}
	last := normalized.Len() - 1
	out := make([]float64, len(normalized.Columns))
	for i, col := range normalized.Columns {
		out[i] = (col[last] - 100) / 100
	}
	return out, nil
}

// Derive runs the full metrics pipeline over prices, which must include the
// benchmark column. The equal-weighted Portfolio column is appended last.
func Derive(prices PriceTable, benchmark string) (*DerivedSeries, error) {
	if err := prices.validate(); err != nil {
		return nil, err
	}
	if prices.Index(benchmark) < 0 {
		return nil, fmt.Errorf("%w: benchmark %s not in table", ErrShapeMismatch, benchmark)
	}
	if prices.Len() == 0 {
		return nil, fmt.Errorf("derive: %w", ErrEmptySeries)
	}

	assets := prices.Without(benchmark)
	portfolio, err := ComputePortfolioColumn(assets, EqualWeights(len(assets.Symbols)))
	if err != nil {
		return nil, fmt.Errorf("portfolio column: %w", err)
	}
	full, err := prices.WithColumn(PortfolioSymbol, portfolio)
	if err != nil {
		return nil, err
	}

	normalized, err := Normalize(full)
	if err != nil {
		return nil, err
	}
	returns, err := PeriodReturns(full)
	if err != nil {
		return nil, err
	}
	total, err := TotalReturnFraction(normalized)
	if err != nil {
		return nil, err
	}

	return &DerivedSeries{
		Prices:      full,
		Normalized:  normalized,
		Returns:     returns,
		Volatility:  AnnualizedVolatility(returns),
		TotalReturn: total,
	}, nil
}

// RiskReturn builds the scatter dataset, one point per derived column.
func RiskReturn(d *DerivedSeries) []RiskReturnPoint {
	if d == nil {
		return nil
	}
	points := make([]RiskReturnPoint, len(d.Prices.Symbols))
	for i, sym := range d.Prices.Symbols {
		vol, ret := d.Volatility[i], d.TotalReturn[i]
		ratio := math.NaN()
		if vol > 0 && !math.IsInf(vol, 0) {
			ratio = ret / vol
		}
		points[i] = RiskReturnPoint{Symbol: sym, Volatility: vol, Return: ret, Ratio: ratio}
	}
	return points
}
