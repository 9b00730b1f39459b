// Command shopsim runs the Cozy Corner shop simulation behind an HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cozycorner/shopsim/internal/api"
	"github.com/cozycorner/shopsim/internal/catalog"
	"github.com/cozycorner/shopsim/internal/config"
	"github.com/cozycorner/shopsim/internal/economy"
	"github.com/cozycorner/shopsim/internal/engine"
	"github.com/cozycorner/shopsim/internal/entropy"
	"github.com/cozycorner/shopsim/internal/market"
	"github.com/cozycorner/shopsim/internal/metrics"
	"github.com/cozycorner/shopsim/internal/notify"
	"github.com/cozycorner/shopsim/internal/persistence"
)

func main() {
	cfg := config.Load()

	opts := &slog.HandlerOptions{Level: cfg.Log.Level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("Cozy Corner shop simulation")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Database.Path)

	// ── Seed ──────────────────────────────────────────────────────────
	source := entropy.NewClient(cfg.Entropy.RandomOrgKey)
	seed := entropy.Resolve(ctx, cfg.Simulation.Seed, source)
	if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
		slog.Warn("could not record seed", "error", err)
	}
	slog.Info("random source ready", "seed", seed, "random_org", source.Enabled())

	// ── Load or start a new game ──────────────────────────────────────
	cat := catalog.Default()
	var front *economy.Shopfront
	snap, err := db.Load(cat)
	switch {
	case errors.Is(err, persistence.ErrNoSave):
		slog.Info("no saved game, starting fresh")
		front = economy.StarterShopfront(cat)
	case err != nil:
		slog.Error("failed to load saved game", "error", err)
		os.Exit(1)
	default:
		front = snap.Shopfront(cat)
	}

	shop := engine.NewShop(cat, front, rand.New(rand.NewSource(seed)))
	if err == nil {
		shop.Restore(snap.Shop)
		slog.Info("saved game loaded", "day", shop.Clock.Day, "coins", front.Wallet.Balance().String(), "reputation", shop.Reputation)
	} else {
		shop.TimeScale = cfg.Simulation.TimeScale
		shop.Autosave = cfg.Simulation.Autosave
	}

	// ── Notifications ─────────────────────────────────────────────────
	feed := notify.NewBuffer(500)
	eventLog := persistence.NewEventLog(db, 256)
	defer eventLog.Close()
	sinks := notify.Fanout{notify.LogSink{}, feed, metrics.Sink{}, eventLog}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		slog.Info("kafka notifications enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	shop.Sink = sinks

	save := func() {
		if err := db.Save(persistence.Capture(shop, front)); err != nil {
			slog.Error("save failed", "error", err)
		}
	}
	shop.OnAutosave = save

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Speed = cfg.Simulation.Speed
	eng.OnTick = func(tick uint64, step time.Duration) {
		shop.Advance(step)
		metrics.Observe(metrics.Gauges{
			Open:       shop.IsOpen(),
			Reputation: shop.Reputation,
			Coins:      front.Wallet.Balance().InexactFloat64(),
			Active:     len(shop.Active()),
			Waiting:    len(shop.Pool()),
		})
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("SHOPSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		slog.Error("invalid port", "port", cfg.Server.Port, "error", err)
		os.Exit(1)
	}
	apiServer := &api.Server{
		Shop:        shop,
		Front:       front,
		Eng:         eng,
		DB:          db,
		Forecast:    market.NewForecaster(seed),
		Feed:        feed,
		Port:        port,
		AdminKey:    cfg.Server.AdminKey,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nCozy Corner is ready: day %d, %s coins, reputation %.1f.\n",
		shop.Clock.Day, front.Wallet.Balance(), shop.Reputation)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}

	// Final save on shutdown. An open day is closed first so its results count.
	slog.Info("final save...")
	eng.Do(func() {
		shop.Close()
		save()
	})

	fmt.Println("Simulation stopped. Shop saved.")
}
