package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uiforge/internal/cache"
	"uiforge/internal/config"
	"uiforge/internal/filestore"
	"uiforge/internal/oracle"
	"uiforge/internal/pipeline"
	"uiforge/internal/server"
	"uiforge/internal/store"
)

func main() {
	portFlag := flag.String("port", "", "server port (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	ctx := context.Background()

	client, err := buildOracleClient(ctx, cfg.Oracle)
	if err != nil {
		log.Fatalf("oracle client: %v", err)
	}
	defer client.Close()

	respCache, err := buildResponseCache(cfg.Cache)
	if err != nil {
		log.Fatalf("response cache: %v", err)
	}

	jobs := store.NewFromEnv()
	defer jobs.Close()

	files := buildFileStore(cfg.Artifact)
	hub := server.NewHub()

	newPipeline := func(jobID string) *pipeline.Pipeline {
		ledger := &oracle.Ledger{}
		metered := oracle.Wrap(client, oracle.MeterUsage(ledger))
		return &pipeline.Pipeline{
			Gen: oracle.NewAdapter(metered, cfg.Oracle.CallTimeout),
			Config: pipeline.Config{
				NodeThreshold: cfg.Pipeline.NodeThreshold,
				Capacity:      cfg.Pipeline.Capacity,
				MaxSplitDepth: cfg.Pipeline.MaxSplitDepth,
				Concurrency:   cfg.Pipeline.Concurrency,
			},
			Ledger: ledger,
			Cache:  respCache,
			Events: hub.Publish,
			JobID:  jobID,
		}
	}

	api := server.NewAPI(jobs, files, hub, newPipeline)
	srv := server.New(cfg.Port, api.Routes())

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func buildOracleClient(ctx context.Context, cfg config.OracleConfig) (oracle.Client, error) {
	var (
		client oracle.Client
		err    error
	)
	switch cfg.Provider {
	case "rest":
		client, err = oracle.NewRESTClient(cfg.RESTBaseURL, cfg.RESTAPIKey, cfg.Model)
	default:
		client, err = oracle.NewGeminiClient(ctx, cfg.Model)
	}
	if err != nil {
		return nil, err
	}
	return oracle.Wrap(client,
		oracle.Retry(cfg.MaxAttempts, cfg.RetryBase),
		oracle.RateLimit(cfg.RPS, cfg.Burst),
	), nil
}

func buildResponseCache(cfg config.CacheConfig) (*cache.ResponseCache, error) {
	var disk *cache.DiskStore
	if cfg.Dir != "" {
		var err error
		disk, err = cache.NewDiskStore(cache.DiskConfig{
			Root: cfg.Dir,
			TTL:  cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
	}
	return cache.New(cfg.MemEntries, disk)
}

func buildFileStore(cfg config.ArtifactConfig) filestore.Store {
	if !cfg.Enabled {
		log.Printf("artifact persistence: in-memory store")
		return filestore.NewMemoryStore()
	}
	s3, err := filestore.NewS3Store(cfg.S3)
	if err != nil {
		log.Printf("artifact persistence: s3 unavailable (%v), falling back to memory", err)
		return filestore.NewMemoryStore()
	}
	log.Printf("artifact persistence: s3 bucket %q", cfg.S3.Bucket)
	return s3
}
