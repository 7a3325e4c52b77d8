package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PriceProvider returns daily adjusted closes for one symbol over [start, end).
type PriceProvider interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) (AssetData, error)
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// DefaultYahooHosts are tried in order on every attempt.
var DefaultYahooHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

// DefaultBackoffs are the pauses between full passes over the host list.
var DefaultBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

// YahooClient fetches daily bars from the Yahoo v8 chart endpoint.
type YahooClient struct {
	HTTP     *http.Client
	Hosts    []string
	Backoffs []time.Duration
	log      zerolog.Logger
}

// NewYahooClient builds a client with the default hosts and backoffs.
func NewYahooClient(httpClient *http.Client, log zerolog.Logger) *YahooClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YahooClient{
		HTTP:     httpClient,
		Hosts:    DefaultYahooHosts,
		Backoffs: DefaultBackoffs,
		log:      log.With().Str("component", "yahoo").Logger(),
	}
}

// FetchDaily implements PriceProvider.
func (c *YahooClient) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (AssetData, error) {
	var yc yahooChartResp
	var lastErr error
	for attempt := 0; attempt < len(c.Backoffs)+1; attempt++ {
		for _, host := range c.Hosts {
			yc = yahooChartResp{}
			lastErr = c.fetchOnce(ctx, host, symbol, start, end, &yc)
			if lastErr == nil || ctx.Err() != nil {
				break
			}
			var ye *yahooError
			if errors.As(lastErr, &ye) {
				// Unknown or delisted symbol: no host will answer differently.
				return AssetData{}, lastErr
			}
			c.log.Debug().Err(lastErr).Str("symbol", symbol).Str("host", host).Int("attempt", attempt).Msg("chart request failed")
		}
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return AssetData{}, ctx.Err()
		}
		if attempt < len(c.Backoffs) {
			select {
			case <-ctx.Done():
				return AssetData{}, ctx.Err()
			case <-time.After(c.Backoffs[attempt]):
			}
		}
	}
	if lastErr != nil {
		return AssetData{}, lastErr
	}
	if yc.Chart.Error != nil {
		return AssetData{}, yc.Chart.Error
	}
	if len(yc.Chart.Result) == 0 {
		return AssetData{}, errors.New("no data")
	}

	res := yc.Chart.Result[0]
	var cl []float64
	if len(res.Indicators.AdjClose) > 0 && len(res.Indicators.AdjClose[0].AdjClose) > 0 {
		cl = res.Indicators.AdjClose[0].AdjClose
	} else if len(res.Indicators.Quote) > 0 {
		cl = res.Indicators.Quote[0].Close
	}
	if len(res.Timestamp) == 0 || len(cl) == 0 {
		return AssetData{}, errors.New("empty bars")
	}

	loc := exchangeLocation(res.Meta.ExchangeTimezoneName, res.Meta.GmtOffset)
	dates := make([]time.Time, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		dates[i] = tradingDate(ts, loc)
	}
	dates, cl = filterPositive(dates, cl)
	dates, cl = dedupeDates(dates, cl)
	return AssetData{Symbol: symbol, Dates: dates, Prices: cl}, nil
}

func (c *YahooClient) fetchOnce(ctx context.Context, host, symbol string, start, end time.Time, out *yahooChartResp) error {
	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(host, "/"), url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", strings.ToUpper(symbol)))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read yahoo response: %w", readErr)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", host)
	}
	if resp.StatusCode == http.StatusNotFound {
		// 404 carries a chart.error payload worth surfacing.
		if err := json.Unmarshal(body, out); err == nil && out.Chart.Error != nil {
			return out.Chart.Error
		}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo %s returned %d: %s", host, resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	return nil
}

func preview(body []byte) string {
	p := string(body)
	if len(p) > 120 {
		p = p[:120]
	}
	return p
}
