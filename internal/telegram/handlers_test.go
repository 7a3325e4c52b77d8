package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioSimulator/internal/finance"
	"portfolioSimulator/internal/simulator"
	"portfolioSimulator/internal/storage"
	"portfolioSimulator/internal/universe"
)

type fakeSender struct {
	mu     sync.Mutex
	texts  []string
	photos []tgbotapi.PhotoConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		f.texts = append(f.texts, v.Text)
	case tgbotapi.PhotoConfig:
		f.photos = append(f.photos, v)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) allText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.texts, "\n---\n")
}

type fakeProvider map[string][]float64

func (f fakeProvider) FetchDaily(_ context.Context, symbol string, start, _ time.Time) (finance.AssetData, error) {
	prices, ok := f[symbol]
	if !ok {
		return finance.AssetData{}, errors.New("no data")
	}
	a := finance.AssetData{Symbol: symbol, Prices: prices}
	for i := range prices {
		a.Dates = append(a.Dates, start.AddDate(0, 0, i))
	}
	return a, nil
}

type fakeCommentator struct {
	reports []string
	err     error
}

func (f *fakeCommentator) Comment(_ context.Context, report string) (string, error) {
	f.reports = append(f.reports, report)
	return "Nice diversification.", f.err
}

func newTestHandlers(t *testing.T, c Commentator) (*Handlers, *fakeSender, *storage.Store) {
	t.Helper()
	db, err := storage.OpenSQLite("file:" + filepath.Join(t.TempDir(), "bot.db") + "?_fk=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitSchema(db))
	store := storage.NewStore(db)

	provider := fakeProvider{
		"PETR4.SA": {100, 110, 121},
		"VALE3.SA": {50, 50, 50},
		"^BVSP":    {1000, 900, 1000},
	}
	u := universe.New("PETR4", "PRIO3", "VALE3")
	sender := &fakeSender{}
	h := NewHandlers(sender, Deps{
		Simulator:    simulator.New(provider, u, simulator.DefaultMarket, zerolog.Nop()),
		Universe:     u,
		History:      store,
		Commentator:  c,
		DefaultStart: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Timeout:      5 * time.Second,
	}, zerolog.Nop())
	return h, sender, store
}

func msg(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}}
}

func TestHandleSimulate(t *testing.T) {
	comm := &fakeCommentator{}
	h, sender, store := newTestHandlers(t, comm)

	h.HandleMessage(msg("/simulate petr4 VALE3 2023-01-02 2023-02-01 1000"))

	require.Len(t, sender.texts, 3)
	assert.Equal(t, "Simulating PETR4, VALE3…", sender.texts[0])
	report := sender.texts[1]
	assert.Contains(t, report, "PETR4: return 21%")
	assert.Contains(t, report, "IBOV: return 0%")
	assert.Contains(t, report, "Portfolio: return 14%")
	assert.Contains(t, report, "your result was R$1,140.00, a gain of R$140.00.")
	assert.Equal(t, "Nice diversification.", sender.texts[2])
	require.Len(t, comm.reports, 1)
	assert.Equal(t, report, comm.reports[0])

	require.Len(t, sender.photos, 2)
	assert.Equal(t, "Performance • base 100", sender.photos[0].Caption)
	perf, ok := sender.photos[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "PETR4_VALE3_performance.png", perf.Name)
	assert.Equal(t, []byte("\x89PNG"), perf.Bytes[:4])

	recs, err := store.RecentSimulations("tg:42", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"PETR4", "VALE3"}, recs[0].Tickers)
	assert.Equal(t, "1000", recs[0].Amount)
	assert.InDelta(t, 0.14, recs[0].PortfolioReturn, 1e-9)
}

func TestHandleSimulateFailures(t *testing.T) {
	t.Run("parse error", func(t *testing.T) {
		h, sender, _ := newTestHandlers(t, nil)
		h.HandleMessage(msg("/simulate"))
		require.Len(t, sender.texts, 1)
		assert.Contains(t, sender.texts[0], "no tickers given")
		assert.Contains(t, sender.texts[0], "Usage: /simulate")
	})

	t.Run("unknown ticker", func(t *testing.T) {
		h, sender, store := newTestHandlers(t, nil)
		h.HandleMessage(msg("/simulate MGLU3"))
		require.Len(t, sender.texts, 2)
		assert.Equal(t, "Simulation failed: unknown ticker: MGLU3", sender.texts[1])
		assert.Empty(t, sender.photos)

		recs, err := store.RecentSimulations("tg:42", 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("upstream failure", func(t *testing.T) {
		h, sender, _ := newTestHandlers(t, nil)
		// PRIO3 is in the universe but the provider has no data for it
		h.HandleMessage(msg("/simulate PRIO3"))
		require.Len(t, sender.texts, 2)
		assert.True(t, strings.HasPrefix(sender.texts[1], "Simulation failed: couldn’t download prices"), sender.texts[1])
	})

	t.Run("commentary failure keeps the rest", func(t *testing.T) {
		h, sender, _ := newTestHandlers(t, &fakeCommentator{err: errors.New("quota")})
		h.HandleMessage(msg("/simulate PETR4 2023-01-02 2023-02-01"))
		assert.Len(t, sender.texts, 2)
		assert.Len(t, sender.photos, 2)
	})
}

func TestHandleOtherCommands(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		h, sender, _ := newTestHandlers(t, nil)
		h.HandleMessage(msg("/start"))
		require.Len(t, sender.texts, 1)
		assert.Contains(t, sender.texts[0], "/simulate T1 T2")
		assert.Contains(t, sender.texts[0], "vs IBOV")
		assert.Contains(t, sender.texts[0], "default start 02/01/2023")
	})

	t.Run("tickers", func(t *testing.T) {
		h, sender, _ := newTestHandlers(t, nil)
		h.HandleMessage(msg("/tickers p"))
		h.HandleMessage(msg("/tickers@PortfolioBot"))
		h.HandleMessage(msg("/tickers X"))
		require.Len(t, sender.texts, 3)
		assert.Equal(t, "2 tickers:\nPETR4 PRIO3", sender.texts[0])
		assert.Equal(t, "3 tickers:\nPETR4 PRIO3 VALE3", sender.texts[1])
		assert.Equal(t, `No tickers start with "X".`, sender.texts[2])
	})

	t.Run("history and popular", func(t *testing.T) {
		h, sender, _ := newTestHandlers(t, nil)
		h.HandleMessage(msg("/history"))
		h.HandleMessage(msg("/popular"))
		require.Len(t, sender.texts, 2)
		assert.Contains(t, sender.texts[0], "No simulations yet")
		assert.Equal(t, "No simulations in the last 30 days.", sender.texts[1])

		h.HandleMessage(msg("/simulate PETR4 VALE3 2023-01-02 2023-02-01"))
		h.HandleMessage(msg("/history"))
		assert.Contains(t, sender.allText(), "Recent simulations\n\nPETR4 VALE3  02/01/2023 → 01/02/2023  return 14%")

		photos := len(sender.photos)
		h.HandleMessage(msg("/popular 7"))
		require.Len(t, sender.photos, photos+1)
		caption := sender.photos[photos].Caption
		assert.Contains(t, caption, "Most simulated tickers (7 days)")
		assert.Contains(t, caption, "1. PETR4: 1 (50.0%)")
	})

	t.Run("plain text is ignored", func(t *testing.T) {
		h, sender, _ := newTestHandlers(t, nil)
		h.HandleMessage(msg("hello there"))
		h.HandleMessage(&tgbotapi.Message{Text: "/help"})
		assert.Empty(t, sender.texts)
	})
}

func TestWebhookHandler(t *testing.T) {
	h, sender, _ := newTestHandlers(t, nil)
	bot := newBot(h, zerolog.Nop())

	body := `{"update_id":7,"message":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"/help"}}`
	rec := httptest.NewRecorder()
	bot.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bot.Wait(ctx))
	assert.Contains(t, sender.allText(), "Commands")

	rec = httptest.NewRecorder()
	bot.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	bot.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":8}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
