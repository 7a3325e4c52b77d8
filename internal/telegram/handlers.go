package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"portfolioSimulator/internal/finance"
	"portfolioSimulator/internal/simulator"
	"portfolioSimulator/internal/storage"
	"portfolioSimulator/internal/universe"
)

var (
	// /simulate T1 T2 ... [start] [end] [amount]
	reSimulate = regexp.MustCompile(`^/simulate(?:@[\w_]+)?(?:\s+.*)?$`)
	// /tickers [prefix]
	reTickers = regexp.MustCompile(`^/tickers(?:@[\w_]+)?(?:\s+(\S+))?$`)
	reHistory = regexp.MustCompile(`^/history(?:@[\w_]+)?$`)
	// /popular [days]
	rePopular = regexp.MustCompile(`^/popular(?:@[\w_]+)?(?:\s+(\d+))?$`)
	reHelp    = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

const (
	maxTickerList  = 60
	historyLimit   = 10
	defaultPopular = 30
	maxPopular     = 365
)

// Sender is the part of the Bot API the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Commentator writes an optional AI commentary for a report.
type Commentator interface {
	Comment(ctx context.Context, report string) (string, error)
}

// History persists runs and answers usage questions.
type History interface {
	SaveSimulation(rec storage.SimulationRecord) (int64, error)
	RecentSimulations(session string, limit int) ([]storage.SimulationRecord, error)
	TickerUsage(since time.Time, limit int) ([]storage.TickerCount, error)
}

// Deps are the collaborators shared by the bot and the HTTP API.
type Deps struct {
	Simulator    *simulator.Simulator
	Universe     *universe.Universe
	History      History
	Commentator  Commentator // nil disables commentary
	DefaultStart time.Time
	Timeout      time.Duration
}

type Handlers struct {
	api  Sender
	deps Deps
	now  func() time.Time
	log  zerolog.Logger
}

func NewHandlers(api Sender, deps Deps, log zerolog.Logger) *Handlers {
	if deps.Timeout <= 0 {
		deps.Timeout = 45 * time.Second
	}
	return &Handlers{
		api:  api,
		deps: deps,
		now:  time.Now,
		log:  log.With().Str("component", "telegram").Logger(),
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	txt := strings.TrimSpace(m.Text)
	chatID := m.Chat.ID

	switch {
	case reSimulate.MatchString(txt):
		h.handleSimulate(chatID, txt)

	case reTickers.MatchString(txt):
		g := reTickers.FindStringSubmatch(txt)
		h.handleTickers(chatID, g[1])

	case reHistory.MatchString(txt):
		h.handleHistory(chatID)

	case rePopular.MatchString(txt):
		days := defaultPopular
		if g := rePopular.FindStringSubmatch(txt); g[1] != "" {
			days, _ = strconv.Atoi(g[1])
			if days < 1 {
				days = 1
			}
			if days > maxPopular {
				days = maxPopular
			}
		}
		h.handlePopular(chatID, days)

	case reHelp.MatchString(txt):
		h.handleHelp(chatID)
	}
}

func session(chatID int64) string { return "tg:" + strconv.FormatInt(chatID, 10) }

func (h *Handlers) handleSimulate(chatID int64, txt string) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	in, err := ParseSimulateArgs(txt, h.deps.DefaultStart, today)
	if err != nil {
		h.reply(chatID, "Couldn’t read that: "+err.Error()+"\nUsage: /simulate PETR4 VALE3 [start] [end] [amount]")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.deps.Timeout)
	defer cancel()

	h.reply(chatID, "Simulating "+strings.Join(in.Tickers, ", ")+"…")
	out, err := h.deps.Simulator.Run(ctx, in)
	if err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Strs("tickers", in.Tickers).Msg("simulation failed")
		h.reply(chatID, "Simulation failed: "+userMessage(err))
		return
	}
	h.reply(chatID, out.Report())

	name := strings.Join(in.Tickers, "_")
	if img, err := finance.MakePerformanceChart(out.Normalized, "Portfolio performance"); err != nil {
		h.log.Warn().Err(err).Msg("performance chart failed")
	} else {
		h.photo(chatID, name+"_performance.png", img, "Performance • base 100")
	}
	if img, err := finance.MakeRiskReturnChart(out.RiskReturn, "Risk vs return"); err != nil {
		h.log.Warn().Err(err).Msg("risk-return chart failed")
	} else {
		h.photo(chatID, name+"_risk_return.png", img, "Total return and annualized volatility")
	}

	if h.deps.Commentator != nil {
		comment, err := h.deps.Commentator.Comment(ctx, out.Report())
		if err != nil {
			h.log.Warn().Err(err).Msg("commentary failed")
		} else if comment != "" {
			h.reply(chatID, comment)
		}
	}

	if h.deps.History != nil {
		if _, err := h.deps.History.SaveSimulation(simulator.Record(session(chatID), in, out)); err != nil {
			h.log.Error().Err(err).Msg("saving simulation failed")
		}
	}
}

func (h *Handlers) handleTickers(chatID int64, prefix string) {
	if h.deps.Universe.Empty() {
		h.reply(chatID, "No ticker list is configured; any symbol the data provider knows is accepted.")
		return
	}
	all := h.deps.Universe.Search(prefix, 0)
	if len(all) == 0 {
		h.reply(chatID, fmt.Sprintf("No tickers start with %q.", strings.ToUpper(prefix)))
		return
	}
	shown := all
	if len(shown) > maxTickerList {
		shown = shown[:maxTickerList]
	}
	msg := fmt.Sprintf("%d tickers:\n%s", len(all), strings.Join(shown, " "))
	if len(all) > len(shown) {
		msg += fmt.Sprintf("\n… and %d more. Narrow it down with /tickers PREFIX", len(all)-len(shown))
	}
	h.reply(chatID, msg)
}

func (h *Handlers) handleHistory(chatID int64) {
	if h.deps.History == nil {
		h.reply(chatID, "History is not available.")
		return
	}
	recs, err := h.deps.History.RecentSimulations(session(chatID), historyLimit)
	if err != nil {
		h.reply(chatID, "History failed: "+err.Error())
		return
	}
	if len(recs) == 0 {
		h.reply(chatID, "No simulations yet. Try /simulate PETR4 VALE3")
		return
	}
	var b strings.Builder
	b.WriteString("Recent simulations\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "\n%s  %s → %s  return %s, volatility %s",
			strings.Join(r.Tickers, " "), r.Start.Format("02/01/2006"), r.End.Format("02/01/2006"),
			simulator.Percent(r.PortfolioReturn), simulator.Percent(r.PortfolioVolatility))
		if r.Amount != "" {
			b.WriteString("  amount " + r.Amount)
		}
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handlePopular(chatID int64, days int) {
	if h.deps.History == nil {
		h.reply(chatID, "History is not available.")
		return
	}
	since := h.now().Add(-time.Duration(days) * 24 * time.Hour)
	counts, err := h.deps.History.TickerUsage(since, 10)
	if err != nil {
		h.reply(chatID, "Popular tickers failed: "+err.Error())
		return
	}
	if len(counts) == 0 {
		h.reply(chatID, fmt.Sprintf("No simulations in the last %d days.", days))
		return
	}
	text := finance.FormatTickerUsageText(counts, days)
	img, err := finance.MakeTickerUsageChart(counts, days)
	if err != nil {
		h.log.Warn().Err(err).Msg("usage chart failed")
		h.reply(chatID, text)
		return
	}
	h.photo(chatID, "popular_tickers.png", img, text)
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /simulate T1 T2 ... [start] [end] [amount] - Equal-weighted portfolio vs " + h.deps.Simulator.Market().BenchmarkLabel +
		"; dates as YYYY-MM-DD or DD/MM/YYYY, default start " + h.deps.DefaultStart.Format("02/01/2006") + " to today\n" +
		"- /tickers [prefix] - List the tickers you can pick\n" +
		"- /history - Your last simulations\n" +
		"- /popular [days] - Most simulated tickers (default: 30 days)\n" +
		"\nExample: /simulate PETR4 VALE3 ITUB4 2023-01-02 2024-01-02 1000"
	h.reply(chatID, help)
}

// userMessage turns run errors into chat-friendly text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the data provider took too long, try again later"
	case errors.Is(err, finance.ErrUpstreamFetch):
		return "couldn’t download prices (" + err.Error() + ")"
	case errors.Is(err, finance.ErrEmptySeries):
		return "no prices in that date range"
	default:
		return err.Error()
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func (h *Handlers) photo(chatID int64, name string, img []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = caption
	if _, err := h.api.Send(photo); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("send photo failed")
	}
}
