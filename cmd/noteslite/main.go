package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noteslite/internal/config"
	"noteslite/internal/db"
	httpx "noteslite/internal/http"
	"noteslite/internal/janitor"
	"noteslite/internal/note"
)

func main() {
	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal(err)
	}

	svc := &note.Service{DB: gdb}
	if cfg.RedisURL != "" {
		cache, err := note.NewStoreCache(cfg.RedisURL, cfg.StoreCacheTTL)
		if err != nil {
			log.Fatal(err)
		}
		defer cache.Close()
		svc.Cache = cache
	}

	r := httpx.NewRouter(cfg, svc)

	worker := &janitor.Worker{
		ID:       "janitor-1",
		DB:       gdb,
		Interval: cfg.JanitorInterval,
		Batch:    cfg.JanitorBatch,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
