package simulator

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"portfolioSimulator/internal/finance"
)

const displayDate = "02/01/2006"

// Narrative describes the outcome of an initial contribution. Gains and losses
// are decided on the rounded decimal amounts, never on formatted strings.
func Narrative(c finance.Contribution, start, end time.Time, currency string) string {
	amount := c.Amount.Round(2)
	final := c.Final.Round(2)
	gain := final.Sub(amount)

	lead := fmt.Sprintf("Based on an initial contribution of %s made from %s to %s, your result was %s",
		Money(currency, amount.InexactFloat64()), start.Format(displayDate), end.Format(displayDate),
		Money(currency, final.InexactFloat64()))

	switch gain.Sign() {
	case 1:
		return lead + ", a gain of " + Money(currency, gain.InexactFloat64()) + "."
	case -1:
		return lead + ", a loss of " + Money(currency, gain.Abs().InexactFloat64()) + "."
	default:
		return lead + ", with no gain."
	}
}

// Money formats v with thousands separators and two decimals, e.g. "R$1,210.00".
func Money(currency string, v float64) string {
	if v < 0 {
		return "-" + currency + humanize.FormatFloat("#,###.##", -v)
	}
	return currency + humanize.FormatFloat("#,###.##", v)
}
