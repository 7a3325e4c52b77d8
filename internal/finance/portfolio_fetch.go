package finance

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// FetchPriceTable fetches every symbol in order and inner-joins the series.
// It returns only once every fetch has finished, so callers never see a
// partially populated table.
func FetchPriceTable(ctx context.Context, provider PriceProvider, symbols []string, start, end time.Time) (PriceTable, error) {
	if len(symbols) == 0 {
		return PriceTable{}, fmt.Errorf("%w: no symbols requested", ErrUpstreamFetch)
	}

	assets := make([]AssetData, 0, len(symbols))
	for _, symbol := range symbols {
		asset, err := provider.FetchDaily(ctx, symbol, start, end)
		if err != nil {
			return PriceTable{}, fmt.Errorf("%w: failed to fetch %s: %w", ErrUpstreamFetch, symbol, err)
		}
		if len(asset.Dates) == 0 || len(asset.Prices) == 0 {
			return PriceTable{}, fmt.Errorf("%w: no data available for %s", ErrUpstreamFetch, symbol)
		}
		asset.Symbol = symbol
		assets = append(assets, asset)
	}

	table, err := AlignInner(assets)
	if err != nil {
		return PriceTable{}, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}
	if table.Len() == 0 {
		return PriceTable{}, fmt.Errorf("%w: no common trading dates between %s and %s", ErrUpstreamFetch,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return table, nil
}

// AlignInner keeps only the dates every asset has a price for. Rows are sorted
// by date and columns follow the order of assets.
func AlignInner(assets []AssetData) (PriceTable, error) {
	if len(assets) == 0 {
		return PriceTable{}, fmt.Errorf("no assets provided")
	}

	byDate := make([]map[time.Time]float64, len(assets))
	for i, asset := range assets {
		if len(asset.Dates) != len(asset.Prices) {
			return PriceTable{}, fmt.Errorf("asset %s has %d dates and %d prices", asset.Symbol, len(asset.Dates), len(asset.Prices))
		}
		m := make(map[time.Time]float64, len(asset.Dates))
		for j, d := range asset.Dates {
			m[d.UTC()] = asset.Prices[j]
		}
		byDate[i] = m
	}

	var common []time.Time
	for d := range byDate[0] {
		inAll := true
		for _, m := range byDate[1:] {
			if _, ok := m[d]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, d)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	table := PriceTable{
		Dates:   common,
		Symbols: make([]string, len(assets)),
		Columns: make([][]float64, len(assets)),
	}
	for i, asset := range assets {
		table.Symbols[i] = asset.Symbol
		col := make([]float64, len(common))
		for row, d := range common {
			col[row] = byDate[i][d]
		}
		table.Columns[i] = col
	}
	return table, nil
}
