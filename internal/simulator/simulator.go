// Package simulator runs one portfolio simulation for a user selection:
// fetch prices, compute metrics, and shape the results for display.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfolioSimulator/internal/finance"
	"portfolioSimulator/internal/universe"
)

var (
	// ErrNoTickers is returned when the selection is empty after cleaning.
	ErrNoTickers = errors.New("select at least one ticker")
	// ErrInvalidRange is returned when the start date is not before the end date.
	ErrInvalidRange = errors.New("start date must be before end date")
	// ErrUnknownTicker is returned for tickers outside the universe and for the benchmark itself.
	ErrUnknownTicker = errors.New("unknown ticker")
)

// Market describes the exchange the universe belongs to.
type Market struct {
	Suffix         string // appended to bare tickers for the data provider, e.g. ".SA"
	Benchmark      string // provider symbol of the benchmark index
	BenchmarkLabel string // display name of the benchmark
	Currency       string // currency symbol used in narratives
}

// DefaultMarket is the B3 exchange benchmarked against the Ibovespa.
var DefaultMarket = Market{Suffix: ".SA", Benchmark: "^BVSP", BenchmarkLabel: "IBOV", Currency: "R$"}

// Input is one user selection. It is never mutated once built.
type Input struct {
	Tickers []string
	Start   time.Time
	End     time.Time
	Amount  decimal.NullDecimal
}

// Simulator runs selections against a price provider.
type Simulator struct {
	provider finance.PriceProvider
	universe *universe.Universe
	market   Market
	log      zerolog.Logger
}

func New(provider finance.PriceProvider, u *universe.Universe, market Market, log zerolog.Logger) *Simulator {
	return &Simulator{
		provider: provider,
		universe: u,
		market:   market,
		log:      log.With().Str("component", "simulator").Logger(),
	}
}

// Market returns the market the simulator was built for.
func (s *Simulator) Market() Market { return s.market }

// Run validates in, blocks until every price series is fetched, and computes
// the output. It never returns a partial result.
func (s *Simulator) Run(ctx context.Context, in Input) (*Output, error) {
	tickers, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	in.Tickers = tickers

	symbols := make([]string, 0, len(tickers)+1)
	for _, t := range tickers {
		symbols = append(symbols, s.market.providerSymbol(t))
	}
	symbols = append(symbols, s.market.Benchmark)

	started := time.Now()
	table, err := finance.FetchPriceTable(ctx, s.provider, symbols, in.Start, in.End)
	if err != nil {
		s.log.Warn().Err(err).Strs("symbols", symbols).Msg("price fetch failed")
		return nil, err
	}
	s.log.Debug().Strs("symbols", symbols).Int("rows", table.Len()).Dur("took", time.Since(started)).Msg("prices fetched")

	out, err := Compute(table, in, s.market)
	if err != nil {
		s.log.Warn().Err(err).Strs("symbols", symbols).Msg("metrics failed")
		return nil, err
	}
	return out, nil
}

// Tickers returns the cleaned ticker list Run would use for in.
func (s *Simulator) Tickers(in Input) ([]string, error) {
	return s.validate(in)
}

// validate returns the selection as unique display names. Tickers that map
// to the same provider symbol, such as PETR4 and PETR4.SA, count once.
func (s *Simulator) validate(in Input) ([]string, error) {
	cleaned := CleanTickers(in.Tickers)
	if len(cleaned) == 0 {
		return nil, ErrNoTickers
	}
	if !in.Start.Before(in.End) {
		return nil, fmt.Errorf("%w: %s / %s", ErrInvalidRange, in.Start.Format("2006-01-02"), in.End.Format("2006-01-02"))
	}
	if in.Amount.Valid && in.Amount.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", finance.ErrInvalidAmount, in.Amount.Decimal)
	}

	seen := make(map[string]struct{}, len(cleaned))
	tickers := make([]string, 0, len(cleaned))
	var unknown []string
	for _, t := range cleaned {
		sym := s.market.providerSymbol(t)
		if sym == s.market.Benchmark || t == strings.ToUpper(s.market.BenchmarkLabel) {
			return nil, fmt.Errorf("%w: %s is the benchmark", ErrUnknownTicker, t)
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		name := s.market.DisplayName(sym)
		if !s.universe.Contains(name) {
			unknown = append(unknown, t)
			continue
		}
		tickers = append(tickers, name)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, strings.Join(unknown, ", "))
	}
	return tickers, nil
}

// CleanTickers upper-cases, trims, and de-duplicates tickers, keeping order.
func CleanTickers(raw []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		su := strings.ToUpper(strings.TrimSpace(s))
		if su == "" {
			continue
		}
		if _, ok := seen[su]; ok {
			continue
		}
		seen[su] = struct{}{}
		out = append(out, su)
	}
	return out
}

// providerSymbol qualifies a bare ticker with the market suffix. Symbols that
// already carry an exchange suffix or are indices pass through.
func (m Market) providerSymbol(ticker string) string {
	if m.Suffix == "" || strings.Contains(ticker, ".") || strings.HasPrefix(ticker, "^") {
		return ticker
	}
	return ticker + m.Suffix
}

// DisplayName maps a provider symbol to the name shown to users.
func (m Market) DisplayName(symbol string) string {
	if symbol == m.Benchmark && m.BenchmarkLabel != "" {
		return m.BenchmarkLabel
	}
	if m.Suffix != "" {
		return strings.TrimSuffix(symbol, m.Suffix)
	}
	return symbol
}
