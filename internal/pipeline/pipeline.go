package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"uiforge/internal/cache"
	"uiforge/internal/chunk"
	"uiforge/internal/design"
	"uiforge/internal/merge"
	"uiforge/internal/oracle"
	"uiforge/internal/registry"
)

// Event is one per-screen progress notification for an external
// observability collaborator.
type Event struct {
	JobID    string        `json:"jobId,omitempty"`
	ScreenID string        `json:"screenId"`
	Name     string        `json:"name"`
	Ordinal  int           `json:"ordinal"`
	Status   chunk.Status  `json:"status"`
	Elapsed  time.Duration `json:"elapsed,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Listener receives progress events. It must not block.
type Listener func(Event)

// Config tunes the pipeline.
type Config struct {
	// NodeThreshold routes a graph to chunked processing.
	NodeThreshold int
	// Capacity is the maximum node count per generation call.
	Capacity int
	// MaxSplitDepth bounds recursive re-splits of oversized screens.
	MaxSplitDepth int
	// Concurrency limits simultaneous oracle calls.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.NodeThreshold <= 0 {
		c.NodeThreshold = design.DefaultNodeThreshold
	}
	if c.Capacity <= 0 {
		c.Capacity = c.NodeThreshold
	}
	if c.MaxSplitDepth <= 0 {
		c.MaxSplitDepth = chunk.DefaultMaxSplitDepth
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// Pipeline runs one design document end to end: load, classify,
// split, generate per screen, deduplicate components, merge.
// A Pipeline is safe to reuse; all per-job state (screens, registry,
// artifacts) is local to Run.
type Pipeline struct {
	Gen    oracle.Generator
	Config Config

	// Ledger, Cache and Events are optional collaborators.
	Ledger *oracle.Ledger
	Cache  *cache.ResponseCache
	Events Listener

	JobID string
}

// Run processes one raw design document. Only loading failures abort
// the job; every screen-level failure is captured in the result's
// status table. On cancellation, in-flight screens run to their call
// timeout, queued screens are marked SKIPPED, and the screens that
// already succeeded are merged into a partial result.
func (p *Pipeline) Run(ctx context.Context, raw []byte, opts oracle.Options) (*merge.Result, error) {
	cfg := p.Config.withDefaults()
	start := time.Now()

	g, err := design.Load(raw)
	if err != nil {
		return nil, err
	}
	mode := design.Classify(g, cfg.NodeThreshold)
	log.Printf("pipeline: loaded %q: %d nodes, mode=%s", g.Name, g.NodeCount(), mode)

	var (
		screens       []*chunk.Screen
		splitWarnings []string
	)
	if mode == design.ModeChunked {
		split, err := chunk.Split(g, chunk.Config{Capacity: cfg.Capacity, MaxDepth: cfg.MaxSplitDepth})
		if err != nil {
			return nil, err
		}
		screens = split.Screens
		for _, serr := range split.Errors {
			splitWarnings = append(splitWarnings, serr.Error())
		}
		log.Printf("pipeline: split into %d screens (%d unsplittable subtrees)", len(screens), len(split.Errors))
	} else {
		sc, err := chunk.Extract(g, g.Root.ID, 0)
		if err != nil {
			return nil, err
		}
		sc.Name = g.Name
		screens = []*chunk.Screen{sc}
	}

	reg := registry.New()
	artifacts := map[string]*oracle.Artifact{}
	var artMu sync.Mutex

	// Heavier screens are dispatched first so the long poles start
	// early; ordinals keep the output order stable regardless.
	order := make([]*chunk.Screen, len(screens))
	copy(order, screens)
	sort.SliceStable(order, func(i, j int) bool { return order[i].NodeCount > order[j].NodeCount })

	// The semaphore slot is taken here in the dispatch loop, not in
	// the spawned goroutine: goroutine scheduling order is arbitrary,
	// so racing for slots would lose the heavier-first ordering.
	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	for _, s := range order {
		select {
		case <-ctx.Done():
			p.skip(s)
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(s *chunk.Screen) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				p.skip(s)
				return
			}
			art := p.processScreen(ctx, s, reg, opts)
			artMu.Lock()
			artifacts[s.ID] = art
			artMu.Unlock()
		}(s)
	}
	wg.Wait()

	res := merge.Merge(screens, artifacts, reg, time.Since(start))
	res.Warnings = append(res.Warnings, splitWarnings...)
	if p.Ledger != nil {
		res.Stats.OracleCalls = p.Ledger.Calls()
		res.Stats.CostUnits = p.Ledger.CostUnits()
	}
	log.Printf("pipeline: %q done: %d/%d screens succeeded, %d files, %s",
		g.Name, res.Stats.ScreensSucceeded, len(screens), res.Stats.TotalFiles, res.Stats.Elapsed.Round(time.Millisecond))
	return res, nil
}

// processScreen drives one screen through its lifecycle and returns
// its artifact, successful or not.
func (p *Pipeline) processScreen(ctx context.Context, s *chunk.Screen, reg *registry.Registry, opts oracle.Options) *oracle.Artifact {
	_ = s.Transition(chunk.StatusProcessing)
	p.emit(s, 0, "")
	start := time.Now()

	key := cache.Fingerprint(s.Root, opts)
	if art, ok := p.cachedArtifact(key, s.ID); ok {
		p.settle(s, reg, art, nil, time.Since(start))
		return art
	}

	known := reg.Known()
	// The call itself is shielded from job cancellation: an in-flight
	// generation runs to completion or to its own timeout.
	callCtx := context.WithoutCancel(ctx)
	art, err := p.Gen.Generate(callCtx, s, known, opts)
	if err == nil {
		p.cacheArtifact(key, art)
	}
	return p.settle(s, reg, art, err, time.Since(start))
}

// settle applies the outcome of a generation call to the screen and
// the registry, and emits the terminal progress event.
func (p *Pipeline) settle(s *chunk.Screen, reg *registry.Registry, art *oracle.Artifact, err error, elapsed time.Duration) *oracle.Artifact {
	if err == nil && art != nil && art.RegistryRef != "" {
		if !reg.RecordUsage(art.RegistryRef, s.Name) {
			err = fmt.Errorf("oracle referenced unknown component %q", art.RegistryRef)
		}
	}
	if err != nil {
		reason := err.Error()
		_ = s.Fail(reason)
		p.emit(s, elapsed, reason)
		return &oracle.Artifact{ScreenID: s.ID, Error: reason, Elapsed: elapsed}
	}

	for _, d := range art.Components {
		reg.Register(d)
	}
	art.Elapsed = elapsed
	_ = s.Transition(chunk.StatusSucceeded)
	p.emit(s, elapsed, "")
	return art
}

func (p *Pipeline) skip(s *chunk.Screen) {
	_ = s.Transition(chunk.StatusSkipped)
	p.emit(s, 0, "")
}

func (p *Pipeline) emit(s *chunk.Screen, elapsed time.Duration, errMsg string) {
	if p.Events == nil {
		return
	}
	p.Events(Event{
		JobID:    p.JobID,
		ScreenID: s.ID,
		Name:     s.Name,
		Ordinal:  s.Ordinal,
		Status:   s.Status(),
		Elapsed:  elapsed,
		Error:    errMsg,
	})
}

func (p *Pipeline) cachedArtifact(key, screenID string) (*oracle.Artifact, bool) {
	if p.Cache == nil {
		return nil, false
	}
	raw, ok := p.Cache.Get(key)
	if !ok {
		return nil, false
	}
	var art oracle.Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, false
	}
	art.ScreenID = screenID
	return &art, true
}

func (p *Pipeline) cacheArtifact(key string, art *oracle.Artifact) {
	if p.Cache == nil || art == nil || !art.OK {
		return
	}
	if raw, err := json.Marshal(art); err == nil {
		p.Cache.Put(key, raw)
	}
}
