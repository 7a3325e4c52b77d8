package simulator

import "portfolioSimulator/internal/storage"

// Record converts a finished run into its history row. Tickers come from out
// when present, since Run collapses aliases of the same asset.
func Record(session string, in Input, out *Output) storage.SimulationRecord {
	rec := storage.SimulationRecord{
		Session: session,
		Tickers: CleanTickers(in.Tickers),
		Start:   in.Start,
		End:     in.End,
	}
	if in.Amount.Valid {
		rec.Amount = in.Amount.Decimal.String()
	}
	if out != nil {
		if len(out.Tickers) > 0 {
			rec.Tickers = out.Tickers
		}
		p := out.Portfolio()
		rec.PortfolioReturn = p.Return
		rec.PortfolioVolatility = p.Volatility
	}
	return rec
}
