package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/attribution-monitor/internal/analytics"
	"github.com/ignite/attribution-monitor/internal/api"
	"github.com/ignite/attribution-monitor/internal/archive"
	"github.com/ignite/attribution-monitor/internal/cache"
	"github.com/ignite/attribution-monitor/internal/config"
	"github.com/ignite/attribution-monitor/internal/crm"
	"github.com/ignite/attribution-monitor/internal/meta"
	"github.com/ignite/attribution-monitor/internal/pkg/distlock"
	"github.com/ignite/attribution-monitor/internal/repository/postgres"
	"github.com/ignite/attribution-monitor/internal/transcripts"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
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

	spendRepo := postgres.NewSpendRepo(db)
	contactRepo := postgres.NewContactRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	transcriptRepo := postgres.NewTranscriptRepo(db)
	syncLogRepo := postgres.NewSyncLogRepo(db)

	metaClient := meta.NewClient(meta.Config{
		AccessToken: cfg.Meta.AccessToken,
		AdAccountID: cfg.Meta.AdAccountID,
		BaseURL:     cfg.Meta.BaseURL,
		APIVersion:  cfg.Meta.APIVersion,
		PageSize:    cfg.Meta.PageSize,
		MaxRetries:  cfg.Meta.MaxRetries,
		Timeout:     cfg.Meta.Timeout(),
	})
	spendCollector := meta.NewCollector(metaClient, spendRepo, syncLogRepo)

	crmClient := crm.NewClient(crm.Config{
		APIKey:     cfg.CRM.APIKey,
		LocationID: cfg.CRM.LocationID,
		BaseURL:    cfg.CRM.BaseURL,
		APIVersion: cfg.CRM.APIVersion,
		PageSize:   cfg.CRM.PageSize,
		PageDelay:  cfg.CRM.PageDelay(),
		Timeout:    cfg.CRM.Timeout(),
	})
	contactCollector := crm.NewCollector(crmClient, contactRepo,
		cfg.CRM.CashCollectedFieldID, cfg.CRM.DealValueFieldID)

	transcriptSvc := transcripts.NewService(transcriptRepo, metaClient)
	dashboard := analytics.NewService(spendRepo, contactRepo)

	var rdb *redis.Client
	var queryCache *cache.Cache
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		queryCache = cache.New(rdb, cfg.Dashboard.CacheTTL())
		log.Printf("Dashboard cache enabled (redis %s, ttl %s)", cfg.Redis.Addr, cfg.Dashboard.CacheTTL())
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.New(context.Background(), archive.Config{
			Bucket: cfg.Archive.S3Bucket,
			Region: cfg.Archive.S3Region,
		})
		if err != nil {
			log.Fatalf("init archive: %v", err)
		}
		log.Printf("Webhook archival enabled (s3://%s)", cfg.Archive.S3Bucket)
	}

	// Redis lock when the cache is enabled, Postgres advisory lock otherwise.
	locks := func(key string) distlock.DistLock {
		return distlock.NewLock(rdb, db, key, 10*time.Minute)
	}

	handlers := api.NewHandlers(
		eventRepo, spendCollector, contactCollector, syncLogRepo,
		transcriptSvc, dashboard, queryCache, archiver, locks,
		cfg.Dashboard.DefaultDays, cfg.Dashboard.TopLimit,
	)
	server := api.NewServer(handlers, nil)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	go func() {
		log.Printf("API listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
