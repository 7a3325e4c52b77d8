package simulator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"portfolioSimulator/internal/finance"
)

// Kind tells the presentation layer how to decorate a card.
type Kind string

const (
	KindAsset     Kind = "asset"
	KindBenchmark Kind = "benchmark"
	KindPortfolio Kind = "portfolio"
)

// Card is the per-series summary: total return and annualized volatility,
// both as fractions (0.21 is 21%).
type Card struct {
	Symbol     string
	Kind       Kind
	Return     float64
	Volatility float64 // NaN when fewer than two returns exist
}

// Output is everything the presentation layer shows for one run.
type Output struct {
	Tickers      []string // unique display names, in selection order
	Start        time.Time
	End          time.Time
	Cards        []Card
	Normalized   finance.PriceTable // display names
	RiskReturn   []finance.RiskReturnPoint
	Contribution *finance.Contribution
	Narrative    string
}

// Compute derives the output for an already fetched table. The table holds
// provider symbols, including the market benchmark.
func Compute(table finance.PriceTable, in Input, m Market) (*Output, error) {
	derived, err := finance.Derive(table, m.Benchmark)
	if err != nil {
		return nil, err
	}

	display := func(sym string) string {
		if sym == finance.PortfolioSymbol {
			return sym
		}
		return m.DisplayName(sym)
	}

	out := &Output{
		Tickers:    in.Tickers,
		Start:      in.Start,
		End:        in.End,
		Normalized: derived.Normalized.Renamed(display),
	}

	// assets first, then the benchmark, then the portfolio
	order := make([]int, 0, len(derived.Prices.Symbols))
	bench := derived.Prices.Index(m.Benchmark)
	for i, sym := range derived.Prices.Symbols {
		if i != bench && sym != finance.PortfolioSymbol {
			order = append(order, i)
		}
	}
	order = append(order, bench, derived.Prices.Index(finance.PortfolioSymbol))

	points := finance.RiskReturn(derived)
	for _, i := range order {
		kind := KindAsset
		switch i {
		case bench:
			kind = KindBenchmark
		case derived.Prices.Index(finance.PortfolioSymbol):
			kind = KindPortfolio
		}
		name := display(derived.Prices.Symbols[i])
		out.Cards = append(out.Cards, Card{
			Symbol:     name,
			Kind:       kind,
			Return:     derived.TotalReturn[i],
			Volatility: derived.Volatility[i],
		})
		pt := points[i]
		pt.Symbol = name
		out.RiskReturn = append(out.RiskReturn, pt)
	}

	if in.Amount.Valid {
		portfolio := derived.TotalReturn[derived.Prices.Index(finance.PortfolioSymbol)]
		c, err := finance.ApplyInitialContribution(portfolio, in.Amount.Decimal)
		if err != nil {
			return nil, err
		}
		out.Contribution = &c
		out.Narrative = Narrative(c, in.Start, in.End, m.Currency)
	}
	return out, nil
}

// Portfolio returns the portfolio card.
func (o *Output) Portfolio() Card {
	for _, c := range o.Cards {
		if c.Kind == KindPortfolio {
			return c
		}
	}
	return Card{}
}

// Report renders the cards and narrative as plain text.
func (o *Output) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio simulation %s to %s\n\n", o.Start.Format(displayDate), o.End.Format(displayDate))
	for _, c := range o.Cards {
		fmt.Fprintf(&b, "%s: return %s, volatility %s\n", c.Symbol, Percent(c.Return), Percent(c.Volatility))
	}
	if o.Narrative != "" {
		b.WriteString("\n")
		b.WriteString(o.Narrative)
		b.WriteString("\n")
	}
	return b.String()
}

// Percent formats a fraction the way the cards show it: 0.214 is "21%".
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", v*100)
}
