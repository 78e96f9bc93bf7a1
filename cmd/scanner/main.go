package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ChannelScout/internal/calculator"
	"ChannelScout/internal/collector"
	"ChannelScout/internal/config"
	"ChannelScout/internal/logger"
	"ChannelScout/internal/memory"
	"ChannelScout/internal/metrics"
	"ChannelScout/internal/model"
	"ChannelScout/internal/notifier"
	"ChannelScout/internal/recorder"
	"ChannelScout/internal/scanner"
	"ChannelScout/internal/scheduler"
	"ChannelScout/internal/strategy"
)

func main() {
	os.Exit(run())
}

func run() int {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Error().Err(err).Str("path", cfgPath).Msg("load config")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		boot.Error().Err(err).Msg("config validation")
		return 1
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		boot.Error().Err(err).Msg("init logger")
		return 1
	}
	log.Info().Str("exchange", cfg.Exchange.Name).Strs("timeframes", cfg.Scan.Timeframes).
		Int("universe_size", cfg.Scan.UniverseSize).Msg("ChannelScout starting")

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.Exchange.Name {
	case "binance":
		fetcher = collector.NewBinanceFetcher(cfg.Exchange.APIKey, cfg.Exchange.APISecret,
			cfg.Exchange.BaseURL, cfg.Proxy, cfg.Exchange.RequestTimeout)
	default:
		fetcher = collector.NewBitgetFetcher(cfg.Exchange.BaseURL, cfg.Proxy, cfg.Exchange.RequestTimeout)
	}
	col := collector.NewCollector(fetcher, collector.Options{
		QuoteCurrency:  cfg.Exchange.QuoteCurrency,
		ContractType:   cfg.Exchange.ContractType,
		UniverseSize:   cfg.Scan.UniverseSize,
		CandleLimit:    cfg.Exchange.CandleLimit,
		MinBars:        cfg.Exchange.MinBars,
		RequestDelay:   cfg.Exchange.RequestDelay,
		RequestTimeout: cfg.Exchange.RequestTimeout,
	}, log)

	// Init memory store
	var store memory.Store
	switch cfg.Memory.Backend {
	case "redis":
		rs, err := memory.NewRedisStore(cfg.Memory.RedisAddr, cfg.Memory.RedisPassword, cfg.Memory.RedisDB, cfg.Memory.RedisKey)
		if err != nil {
			log.Error().Err(err).Msg("init redis memory store")
			return 1
		}
		defer rs.Close()
		store = rs
	default:
		store = memory.NewFileStore(cfg.Memory.StateFile)
	}

	// Init notification sink
	var sink scanner.Sink
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sink = tn
	} else {
		log.Warn().Msg("telegram not configured, reports go to stdout")
		sink = notifier.NewConsoleNotifier(os.Stdout)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	daemon := cfg.Schedule.Cron != ""
	reg := prometheus.NewRegistry()
	if daemon && cfg.Metrics.Addr != "" {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	met := metrics.New(reg)

	loc := cfg.Location()
	sc := scanner.New(col, store, sink, rec, met, scanner.Options{
		Timeframes: cfg.Scan.Timeframes,
		Strategy: strategy.Policy{
			VWMAGapThreshold:   cfg.Scan.VWMAGapThreshold,
			CompositeThreshold: cfg.Scan.CompositeScoreThreshold,
		},
		Band: calculator.Band{Low: cfg.Scan.ChannelBandLow, High: cfg.Scan.ChannelBandHigh},
		Report: notifier.ReportOptions{
			Timeframes: cfg.Scan.Timeframes,
			Caps: map[model.Category]int{
				model.CategoryComposite:   cfg.Report.Caps.Composite,
				model.CategoryChannel:     cfg.Report.Caps.Channel,
				model.CategoryVWMASupport: cfg.Report.Caps.VWMA,
			},
			Location: loc,
		},
		MaxMessageLen: cfg.Report.MaxMessageLen,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !daemon {
		if _, err := sc.Run(ctx); err != nil {
			return 1
		}
		return 0
	}

	// Daemon mode
	sched := scheduler.NewScheduler(ctx, sc, cfg.Scan.Timeframes, loc, log)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Error().Err(err).Msg("register cron task")
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, scanning now")
		go sched.RunNow()
	}

	log.Info().Msg("ChannelScout is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return 0
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}
