package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSymbol names the equal-weighted blend column appended by Derive.
const PortfolioSymbol = "Portfolio"

// TradingDaysPerYear is the annualization constant for daily statistics.
const TradingDaysPerYear = 252

// PriceTable is a date-aligned set of price (or derived) columns.
// Columns[i][row] belongs to Symbols[i] on Dates[row].
type PriceTable struct {
	Dates   []time.Time
	Symbols []string
	Columns [][]float64
}

// Len returns the number of rows.
func (t PriceTable) Len() int { return len(t.Dates) }

// Index returns the column position of symbol, or -1.
func (t PriceTable) Index(symbol string) int {
	for i, s := range t.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Column returns the values of symbol.
func (t PriceTable) Column(symbol string) ([]float64, bool) {
	i := t.Index(symbol)
	if i < 0 {
		return nil, false
	}
	return t.Columns[i], true
}

// Without returns a table sharing the rows of t minus the symbol column.
func (t PriceTable) Without(symbol string) PriceTable {
	out := PriceTable{Dates: t.Dates}
	for i, s := range t.Symbols {
		if s == symbol {
			continue
		}
		out.Symbols = append(out.Symbols, s)
		out.Columns = append(out.Columns, t.Columns[i])
	}
	return out
}

// WithColumn returns a copy of t with values appended as a new column.
func (t PriceTable) WithColumn(symbol string, values []float64) (PriceTable, error) {
	if len(values) != t.Len() {
		return PriceTable{}, fmt.Errorf("%w: column %s has %d rows, table has %d", ErrShapeMismatch, symbol, len(values), t.Len())
	}
	out := PriceTable{
		Dates:   t.Dates,
		Symbols: append(append([]string(nil), t.Symbols...), symbol),
		Columns: append(append([][]float64(nil), t.Columns...), values),
	}
	return out, nil
}

// Renamed returns a table sharing the columns of t under new names.
func (t PriceTable) Renamed(rename func(string) string) PriceTable {
	out := PriceTable{Dates: t.Dates, Columns: t.Columns, Symbols: make([]string, len(t.Symbols))}
	for i, s := range t.Symbols {
		out.Symbols[i] = rename(s)
	}
	return out
}

func (t PriceTable) validate() error {
	if len(t.Symbols) != len(t.Columns) {
		return fmt.Errorf("%w: %d symbols for %d columns", ErrShapeMismatch, len(t.Symbols), len(t.Columns))
	}
	for i, col := range t.Columns {
		if len(col) != len(t.Dates) {
			return fmt.Errorf("%w: column %s has %d rows, expected %d", ErrShapeMismatch, t.Symbols[i], len(col), len(t.Dates))
		}
	}
	return nil
}

// AssetData represents fetched daily prices for a single asset
type AssetData struct {
	Symbol string
	Dates  []time.Time // exchange-local calendar dates at UTC midnight
	Prices []float64
}

// DerivedSeries holds every statistic computed from one PriceTable.
// Volatility and TotalReturn are indexed like Prices.Symbols.
type DerivedSeries struct {
	Prices      PriceTable // input plus the Portfolio column
	Normalized  PriceTable
	Returns     PriceTable
	Volatility  []float64
	TotalReturn []float64
}

// RiskReturnPoint is one entry of the risk-return scatter dataset.
type RiskReturnPoint struct {
	Symbol     string
	Volatility float64
	Return     float64
	Ratio      float64 // Return / Volatility, NaN when undefined
}

// Contribution describes how an initial amount evolved over the window.
type Contribution struct {
	Amount decimal.Decimal
	Final  decimal.Decimal
	Gain   decimal.Decimal
}
