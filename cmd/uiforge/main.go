package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"uiforge/internal/cache"
	"uiforge/internal/oracle"
	"uiforge/internal/pipeline"
)

func main() {
	in := flag.String("in", "", "path to the design document (JSON)")
	outDir := flag.String("out", "out", "output directory")
	model := flag.String("model", "gemini-2.5-pro", "Gemini model id")
	framework := flag.String("framework", "react", "target UI framework")
	backend := flag.String("backend", "nodejs", "target backend framework")
	message := flag.String("message", "", "extra generation requirements")
	threshold := flag.Int("threshold", 0, "node-count threshold for chunked processing")
	concurrency := flag.Int("concurrency", 4, "parallel oracle calls")
	cacheDir := flag.String("cache", "", "response cache directory (empty disables disk cache)")
	flag.Parse()

	if *in == "" {
		log.Fatal("--in is required")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	_ = godotenv.Load()
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}

	raw, err := os.ReadFile(*in)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	client, err := oracle.NewGeminiClient(ctx, *model)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ledger := &oracle.Ledger{}
	wrapped := oracle.Wrap(client,
		oracle.MeterUsage(ledger),
		oracle.Retry(3, 0),
		oracle.RateLimit(0.5, 1),
	)

	respCache, err := buildCache(*cacheDir)
	if err != nil {
		log.Fatal(err)
	}

	p := &pipeline.Pipeline{
		Gen:    oracle.NewAdapter(wrapped, 0),
		Config: pipeline.Config{NodeThreshold: *threshold, Concurrency: *concurrency},
		Ledger: ledger,
		Cache:  respCache,
		Events: logProgress,
	}

	res, err := p.Run(ctx, raw, oracle.Options{
		Framework:        *framework,
		BackendFramework: *backend,
		UserMessage:      *message,
	})
	if err != nil {
		log.Fatal(err)
	}

	writeFiles(*outDir, "frontend", res.UIFiles)
	writeFiles(*outDir, "backend", res.APIFiles)
	writeJSON(*outDir, "result.json", res)

	for _, w := range res.Warnings {
		log.Printf("warning: %s", w)
	}
	log.Printf("generation completed: %d/%d screens, %d files, %d oracle calls → %s",
		res.Stats.ScreensSucceeded, res.Stats.ScreensAttempted, res.Stats.TotalFiles, res.Stats.OracleCalls, *outDir)
}

func buildCache(dir string) (*cache.ResponseCache, error) {
	var disk *cache.DiskStore
	if dir != "" {
		var err error
		disk, err = cache.NewDiskStore(cache.DiskConfig{Root: dir})
		if err != nil {
			return nil, err
		}
	}
	return cache.New(128, disk)
}

func logProgress(e pipeline.Event) {
	if e.Error != "" {
		log.Printf("screen %q (%s): %s: %s", e.Name, e.ScreenID, e.Status, e.Error)
		return
	}
	log.Printf("screen %q (%s): %s", e.Name, e.ScreenID, e.Status)
}

func writeFiles(dir, sub string, files []oracle.FileArtifact) {
	for _, f := range files {
		path := filepath.Join(dir, sub, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			log.Fatal(err)
		}
	}
}

func writeJSON(dir, name string, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		log.Fatal(err)
	}
}
