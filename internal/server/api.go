package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfolioSimulator/internal/finance"
	"portfolioSimulator/internal/simulator"
	"portfolioSimulator/internal/storage"
	"portfolioSimulator/internal/universe"
)

const (
	dateLayout     = "2006-01-02"
	defaultSession = "api"
	maxBodyBytes   = 1 << 16
)

var errBadRequest = errors.New("bad request")

// History is the run history the API reads and writes.
type History interface {
	SaveSimulation(rec storage.SimulationRecord) (int64, error)
	RecentSimulations(session string, limit int) ([]storage.SimulationRecord, error)
}

type API struct {
	sim          *simulator.Simulator
	universe     *universe.Universe
	history      History
	charts       *finance.ChartCache
	defaultStart time.Time
	timeout      time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

type APIConfig struct {
	Simulator    *simulator.Simulator
	Universe     *universe.Universe
	History      History // nil disables saving and listing runs
	Charts       *finance.ChartCache
	DefaultStart time.Time
	Timeout      time.Duration
}

func NewAPI(cfg APIConfig, log zerolog.Logger) *API {
	if cfg.Charts == nil {
		cfg.Charts = finance.NewChartCache(finance.DefaultChartCacheTTL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &API{
		sim:          cfg.Simulator,
		universe:     cfg.Universe,
		history:      cfg.History,
		charts:       cfg.Charts,
		defaultStart: cfg.DefaultStart,
		timeout:      cfg.Timeout,
		now:          time.Now,
		log:          log.With().Str("component", "api").Logger(),
	}
}

type response[T any] struct {
	Data  *T     `json:"data"`
	Error string `json:"error,omitempty"`
}

type simulationRequest struct {
	Tickers []string    `json:"tickers"`
	Start   string      `json:"start"`
	End     string      `json:"end"`
	Amount  json.Number `json:"amount"`
	Session string      `json:"session"`
}

type cardDTO struct {
	Symbol     string   `json:"symbol"`
	Kind       string   `json:"kind"`
	Return     *float64 `json:"return"`
	Volatility *float64 `json:"volatility"`
}

type pointDTO struct {
	Symbol     string   `json:"symbol"`
	Return     *float64 `json:"return"`
	Volatility *float64 `json:"volatility"`
	Ratio      *float64 `json:"ratio"`
}

type seriesDTO struct {
	Dates   []string     `json:"dates"`
	Symbols []string     `json:"symbols"`
	Values  [][]*float64 `json:"values"`
}

type contributionDTO struct {
	Amount decimal.Decimal `json:"amount"`
	Final  decimal.Decimal `json:"final"`
	Gain   decimal.Decimal `json:"gain"`
}

type simulationDTO struct {
	ID           int64            `json:"id,omitempty"`
	Start        string           `json:"start"`
	End          string           `json:"end"`
	Cards        []cardDTO        `json:"cards"`
	Normalized   seriesDTO        `json:"normalized"`
	RiskReturn   []pointDTO       `json:"risk_return"`
	Contribution *contributionDTO `json:"contribution,omitempty"`
	Narrative    string           `json:"narrative,omitempty"`
}

type recordDTO struct {
	ID                  int64    `json:"id"`
	Session             string   `json:"session"`
	Tickers             []string `json:"tickers"`
	Start               string   `json:"start"`
	End                 string   `json:"end"`
	Amount              string   `json:"amount,omitempty"`
	PortfolioReturn     *float64 `json:"portfolio_return"`
	PortfolioVolatility *float64 `json:"portfolio_volatility"`
	CreatedAt           string   `json:"created_at"`
}

type tickersDTO struct {
	Tickers    []string `json:"tickers"`
	Restricted bool     `json:"restricted"`
}

func (a *API) listTickers(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		a.fail(w, err)
		return
	}
	out := tickersDTO{Tickers: a.universe.Search(r.URL.Query().Get("q"), limit), Restricted: !a.universe.Empty()}
	if out.Tickers == nil {
		out.Tickers = []string{}
	}
	writeJSON(w, http.StatusOK, response[tickersDTO]{Data: &out})
}

func (a *API) createSimulation(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.fail(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	in, err := a.input(req.Tickers, req.Start, req.End, req.Amount.String())
	if err != nil {
		a.fail(w, err)
		return
	}

	out, err := a.run(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}

	dto := toSimulationDTO(out)
	if a.history != nil {
		sess := strings.TrimSpace(req.Session)
		if sess == "" {
			sess = defaultSession
		}
		id, err := a.history.SaveSimulation(simulator.Record(sess, in, out))
		if err != nil {
			a.log.Error().Err(err).Msg("saving simulation failed")
		} else {
			dto.ID = id
		}
	}
	writeJSON(w, http.StatusOK, response[simulationDTO]{Data: &dto})
}

func (a *API) listSimulations(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, response[any]{Error: "history is not configured"})
		return
	}
	limit, err := intParam(r, "limit", 20)
	if err != nil {
		a.fail(w, err)
		return
	}
	sess := r.URL.Query().Get("session")
	if sess == "" {
		sess = defaultSession
	}
	recs, err := a.history.RecentSimulations(sess, limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	out := make([]recordDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordDTO{
			ID:                  rec.ID,
			Session:             rec.Session,
			Tickers:             rec.Tickers,
			Start:               rec.Start.Format(dateLayout),
			End:                 rec.End.Format(dateLayout),
			Amount:              rec.Amount,
			PortfolioReturn:     num(rec.PortfolioReturn),
			PortfolioVolatility: num(rec.PortfolioVolatility),
			CreatedAt:           rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, response[[]recordDTO]{Data: &out})
}

func (a *API) performanceChart(w http.ResponseWriter, r *http.Request) {
	a.chart(w, r, "performance", func(out *simulator.Output) ([]byte, error) {
		return finance.MakePerformanceChart(out.Normalized, "Portfolio performance")
	})
}

func (a *API) riskReturnChart(w http.ResponseWriter, r *http.Request) {
	a.chart(w, r, "risk-return", func(out *simulator.Output) ([]byte, error) {
		return finance.MakeRiskReturnChart(out.RiskReturn, "Risk vs return")
	})
}

func (a *API) chart(w http.ResponseWriter, r *http.Request, kind string, render func(*simulator.Output) ([]byte, error)) {
	q := r.URL.Query()
	var tickers []string
	for _, t := range q["tickers"] {
		tickers = append(tickers, strings.Split(t, ",")...)
	}
	in, err := a.input(tickers, q.Get("start"), q.Get("end"), "")
	if err != nil {
		a.fail(w, err)
		return
	}

	key := fmt.Sprintf("%s|%s|%s|%s", kind, strings.Join(simulator.CleanTickers(in.Tickers), ","),
		in.Start.Format(dateLayout), in.End.Format(dateLayout))
	img, ok := a.charts.Get(key)
	if !ok {
		out, err := a.run(r.Context(), in)
		if err != nil {
			a.fail(w, err)
			return
		}
		if img, err = render(out); err != nil {
			a.fail(w, err)
			return
		}
		a.charts.Set(key, img)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (a *API) run(ctx context.Context, in simulator.Input) (*simulator.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.sim.Run(ctx, in)
}

// input builds a simulation input from raw request fields. Blank dates fall
// back to the default start and today.
func (a *API) input(tickers []string, start, end, amount string) (simulator.Input, error) {
	in := simulator.Input{
		Tickers: tickers,
		Start:   a.defaultStart,
		End:     a.now().UTC().Truncate(24 * time.Hour),
	}
	var err error
	if start = strings.TrimSpace(start); start != "" {
		if in.Start, err = time.Parse(dateLayout, start); err != nil {
			return simulator.Input{}, fmt.Errorf("%w: start %q is not YYYY-MM-DD", errBadRequest, start)
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		if in.End, err = time.Parse(dateLayout, end); err != nil {
			return simulator.Input{}, fmt.Errorf("%w: end %q is not YYYY-MM-DD", errBadRequest, end)
		}
	}
	if in.Amount, err = finance.ParseAmount(amount); err != nil {
		return simulator.Input{}, err
	}
	return in, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

func toSimulationDTO(out *simulator.Output) simulationDTO {
	dto := simulationDTO{
		Start:     out.Start.Format(dateLayout),
		End:       out.End.Format(dateLayout),
		Narrative: out.Narrative,
	}
	for _, c := range out.Cards {
		dto.Cards = append(dto.Cards, cardDTO{Symbol: c.Symbol, Kind: string(c.Kind), Return: num(c.Return), Volatility: num(c.Volatility)})
	}
	for _, p := range out.RiskReturn {
		dto.RiskReturn = append(dto.RiskReturn, pointDTO{Symbol: p.Symbol, Return: num(p.Return), Volatility: num(p.Volatility), Ratio: num(p.Ratio)})
	}
	n := out.Normalized
	dto.Normalized = seriesDTO{Symbols: n.Symbols, Dates: make([]string, n.Len()), Values: make([][]*float64, len(n.Columns))}
	for i, d := range n.Dates {
		dto.Normalized.Dates[i] = d.Format(dateLayout)
	}
	for i, col := range n.Columns {
		vals := make([]*float64, len(col))
		for j, v := range col {
			vals[j] = num(v)
		}
		dto.Normalized.Values[i] = vals
	}
	if c := out.Contribution; c != nil {
		dto.Contribution = &contributionDTO{Amount: c.Amount, Final: c.Final.Round(2), Gain: c.Gain.Round(2)}
	}
	return dto
}

// num maps non-finite values to JSON null.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, simulator.ErrNoTickers),
		errors.Is(err, simulator.ErrInvalidRange),
		errors.Is(err, simulator.ErrUnknownTicker),
		errors.Is(err, finance.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, finance.ErrEmptySeries), errors.Is(err, finance.ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, finance.ErrUpstreamFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	ev := a.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = a.log.Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, response[any]{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
