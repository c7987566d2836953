package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/attribution-monitor/internal/config"
	"github.com/ignite/attribution-monitor/internal/deepgram"
	"github.com/ignite/attribution-monitor/internal/metrics"
	"github.com/ignite/attribution-monitor/internal/repository/postgres"
	"github.com/ignite/attribution-monitor/internal/transcripts"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.Println("Starting transcript worker...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	if !cfg.Transcription.Enabled {
		log.Fatal("transcription is disabled; nothing for this worker to do")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	log.Println("Connected to database")

	transcriber := deepgram.NewClient(deepgram.Config{
		APIKey:  cfg.Transcription.APIKey,
		BaseURL: cfg.Transcription.BaseURL,
		Model:   cfg.Transcription.Model,
		Timeout: cfg.Transcription.Timeout(),
	})

	worker := transcripts.NewWorker(
		postgres.NewTranscriptRepo(db),
		transcriber,
		cfg.Worker.PollInterval(),
		cfg.Worker.BatchSize,
		cfg.Worker.TempDir,
	)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		addr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		log.Printf("Worker metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics listener stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Run(ctx)
}
