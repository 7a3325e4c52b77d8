package telegram

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portfolioSimulator/internal/finance"
	"portfolioSimulator/internal/simulator"
)

var (
	// ErrMissingTickers is returned when /simulate has no ticker arguments.
	ErrMissingTickers = errors.New("no tickers given")
	// ErrBadDate is returned for a date in neither accepted layout.
	ErrBadDate = errors.New("invalid date")
	// ErrBadAmount is returned for an amount that is not a non-negative number.
	ErrBadAmount = errors.New("invalid amount")
)

var (
	reCommand = regexp.MustCompile(`^/[A-Za-z_-]+(?:@[\w_]+)?`)
	reAmount  = regexp.MustCompile(`^(?:R?\$)?(\d+(?:[.,]\d{1,2})?)$`)
	reDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$|^\d{2}/\d{2}/\d{4}$`)
)

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseSimulateArgs parses "/simulate T1 T2 ... [start] [end] [amount]".
// Tickers come first, then up to two dates (YYYY-MM-DD or DD/MM/YYYY), then
// an optional amount. Missing dates default to defaultStart and today.
func ParseSimulateArgs(text string, defaultStart, today time.Time) (simulator.Input, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(reCommand.ReplaceAllString(text, ""))
	parts := strings.Fields(text)

	in := simulator.Input{Start: defaultStart, End: today}
	var dates []time.Time
	for i, p := range parts {
		switch {
		case reDate.MatchString(p):
			d, err := parseDate(p)
			if err != nil {
				return simulator.Input{}, err
			}
			if len(dates) == 2 {
				return simulator.Input{}, fmt.Errorf("%w: more than two dates", ErrBadDate)
			}
			dates = append(dates, d)

		case reAmount.MatchString(p):
			if i != len(parts)-1 {
				return simulator.Input{}, fmt.Errorf("%w: %q must be the last argument", ErrBadAmount, p)
			}
			amount, err := parseAmount(p)
			if err != nil {
				return simulator.Input{}, err
			}
			in.Amount = amount

		default:
			if len(dates) > 0 {
				return simulator.Input{}, fmt.Errorf("ticker %q after the dates; tickers come first", p)
			}
			in.Tickers = append(in.Tickers, p)
		}
	}

	in.Tickers = simulator.CleanTickers(in.Tickers)
	if len(in.Tickers) == 0 {
		return simulator.Input{}, ErrMissingTickers
	}
	if len(dates) > 0 {
		in.Start = dates[0]
	}
	if len(dates) > 1 {
		in.End = dates[1]
	}
	return in, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

func parseAmount(s string) (decimal.NullDecimal, error) {
	g := reAmount.FindStringSubmatch(s)
	if g == nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	amount, err := finance.ParseAmount(strings.ReplaceAll(g[1], ",", "."))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %w", ErrBadAmount, err)
	}
	return amount, nil
}
