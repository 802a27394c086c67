package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kedai-pos/engine/internal/config"
	"github.com/kedai-pos/engine/internal/dedupe"
	"github.com/kedai-pos/engine/internal/gateway"
	"github.com/kedai-pos/engine/internal/lifecycle"
	"github.com/kedai-pos/engine/internal/order"
	"github.com/kedai-pos/engine/internal/router"
	"github.com/kedai-pos/engine/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	bus := gateway.NewBus()
	store := gateway.NewPostgresStore(pool, bus)

	detector := dedupe.New(store,
		dedupe.WithWindow(cfg.DuplicateWindow),
		dedupe.WithLookback(cfg.DuplicateLookback),
		dedupe.WithThreshold(cfg.DuplicateThreshold),
	)
	mgr := lifecycle.NewManager(store, detector)

	hub := ws.NewHub()
	go hub.Run()
	defer hub.BridgeNotifier(bus)()
	defer mgr.ObserveStatusChanges(bus, func(o order.Order) {
		log.Printf("order %s ready for pickup (source %q)", o.ID, o.Source)
	})()

	r := router.New(cfg, store, mgr, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
