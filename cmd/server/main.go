package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradematch/api/feed"
	"tradematch/api/rest"
	"tradematch/domain/account"
	"tradematch/domain/book"
	"tradematch/domain/scale"
	"tradematch/infra/config"
	kafkafeed "tradematch/infra/feed"
	"tradematch/infra/fillstore"
	"tradematch/infra/logging"
	"tradematch/jobs/broadcaster"
	"tradematch/service"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// ---------------- Price scales ----------------

	scales, err := scale.NewRegistry(cfg.Market.DefaultPrecision)
	if err != nil {
		log.Fatal("scale registry init failed", zap.Error(err))
	}
	for instrument, precision := range cfg.Market.Precisions {
		if err := scales.Register(instrument, precision); err != nil {
			log.Fatal("scale registration failed", zap.String("instrument", instrument), zap.Error(err))
		}
	}

	// ---------------- Accounts ----------------

	accounts := account.NewManager()
	seedAccounts(cfg, accounts)
	for _, acct := range accounts.All() {
		log.Info("provisioned account", zap.String("user", acct.UserID()), zap.String("token", acct.APIKey()))
	}

	// ---------------- Engine ----------------

	engine := service.NewEngine(log, accounts, scales, cfg.Market.Instrument,
		book.WithDailyCutover(cfg.Market.CutoverHour, cfg.Market.CutoverMinute))
	defer engine.Close()

	// ---------------- Fill store ----------------

	store, err := fillstore.Open(filepath.Join(cfg.Storage.DataDir, "fills"))
	if err != nil {
		log.Fatal("fill store init failed", zap.Error(err))
	}
	defer store.Close()

	engine.OnFill(func(f service.Fill) {
		payload, err := json.Marshal(f)
		if err != nil {
			log.Error("fill encode failed", zap.Uint64("fillId", f.FillID), zap.Error(err))
			return
		}
		if err := store.Append(f.FillID, payload); err != nil {
			log.Error("fill append failed", zap.Uint64("fillId", f.FillID), zap.Error(err))
		}
	})

	// ---------------- Websocket hubs ----------------

	publicHub := feed.NewPublicHub(log)
	privateHub := feed.NewPrivateHub(log)

	engine.OnBookUpdate(publicHub.BroadcastBook)
	engine.OnTrades(func(trades []service.TradeView) {
		publicHub.BroadcastTrades(cfg.Market.Instrument, trades)
	})
	engine.OnFill(privateHub.SendFill)

	// ---------------- Kafka ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled {
		producer := kafkafeed.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MarketDataTopic, log)
		defer producer.Close()

		engine.OnBookUpdate(func(view service.BookView) {
			_ = producer.PublishBook(ctx, view)
		})
		engine.OnTrades(func(trades []service.TradeView) {
			_ = producer.PublishTrades(ctx, cfg.Market.Instrument, trades)
		})

		bc, err := broadcaster.New(store, cfg.Kafka.Brokers, cfg.Kafka.FillsTopic, log)
		if err != nil {
			log.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	// ---------------- HTTP ----------------

	srv := rest.NewServer(
		log, engine, accounts, scales,
		service.NewOrderIDGenerator(1),
		publicHub, privateHub,
		instruments(cfg, scales),
	)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server exited", zap.Error(err))
		}
	}()

	// ---------------- Shutdown ----------------

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}
}

// seedAccounts provisions configured accounts, falling back to the demo
// set when none are configured.
func seedAccounts(cfg *config.Config, accounts *account.Manager) {
	if len(cfg.Accounts) == 0 {
		ticker := cfg.Market.Instrument
		accounts.Register("admin", decimal.NewFromInt(5000000), map[string]int64{ticker: 1000000}, true)
		accounts.Register("alpha", decimal.NewFromInt(250000), map[string]int64{ticker: 10000}, false)
		accounts.Register("beta", decimal.NewFromInt(250000), map[string]int64{ticker: 10000}, false)
		return
	}
	for _, seed := range cfg.Accounts {
		accounts.RegisterWithKey(seed.UserID, seed.APIKey, seed.Cash, seed.Positions, seed.Admin)
	}
}

func instruments(cfg *config.Config, scales *scale.Registry) []rest.Instrument {
	out := []rest.Instrument{{
		Ticker:      cfg.Market.Instrument,
		TickSize:    scales.Get(cfg.Market.Instrument).TickSize(),
		MinOrderQty: 1,
	}}
	for instrument := range cfg.Market.Precisions {
		if instrument == cfg.Market.Instrument {
			continue
		}
		out = append(out, rest.Instrument{
			Ticker:      instrument,
			TickSize:    scales.Get(instrument).TickSize(),
			MinOrderQty: 1,
		})
	}
	return out
}
