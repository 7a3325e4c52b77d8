package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"portfolioSimulator/internal/config"
	"portfolioSimulator/internal/finance"
	"portfolioSimulator/internal/logging"
	"portfolioSimulator/internal/openai"
	"portfolioSimulator/internal/server"
	"portfolioSimulator/internal/simulator"
	"portfolioSimulator/internal/storage"
	"portfolioSimulator/internal/telegram"
	"portfolioSimulator/internal/universe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("open sqlite")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}
	store := storage.NewStore(db)
	log.Info().Str("path", cfg.DBPath).Msg("db: schema ensured")

	var tickers *universe.Universe
	if cfg.TickersFile != "" {
		tickers, err = universe.Load(cfg.TickersFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn().Str("path", cfg.TickersFile).Msg("ticker file not found, accepting any ticker")
		case err != nil:
			log.Fatal().Err(err).Msg("load tickers")
		default:
			log.Info().Int("tickers", len(tickers.Symbols())).Msg("ticker universe loaded")
		}
	}

	yahoo := finance.NewYahooClient(&http.Client{Timeout: cfg.FetchTimeout}, log)
	market := simulator.Market{
		Suffix:         cfg.MarketSuffix,
		Benchmark:      cfg.BenchmarkSymbol,
		BenchmarkLabel: cfg.BenchmarkLabel,
		Currency:       cfg.CurrencySymbol,
	}
	sim := simulator.New(yahoo, tickers, market, log)

	var webhook http.HandlerFunc
	var bot *telegram.Bot
	if cfg.BotEnabled() {
		deps := telegram.Deps{
			Simulator:    sim,
			Universe:     tickers,
			History:      store,
			DefaultStart: cfg.DefaultStart,
			Timeout:      cfg.FetchTimeout * 2,
		}
		if cfg.OpenAIKey != "" {
			deps.Commentator = openai.NewCommentator(cfg.OpenAIKey, cfg.OpenAIModel)
		}
		bot, err = telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, deps, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram")
		}
		webhook = bot.WebhookHandler
	} else {
		log.Info().Msg("telegram: no bot token, webhook disabled")
	}

	api := server.NewAPI(server.APIConfig{
		Simulator:    sim,
		Universe:     tickers,
		History:      store,
		Charts:       finance.NewChartCache(cfg.ChartCacheTTL),
		DefaultStart: cfg.DefaultStart,
		Timeout:      cfg.FetchTimeout * 2,
	}, log)
	srv := server.NewHTTPServer(":"+cfg.Port, server.NewRouter(api, webhook, log))

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if bot != nil {
		if err := bot.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telegram updates still running")
		}
	}
	log.Info().Msg("server stopped")
}
