package oracle

import (
	"context"
	"time"

	"uiforge/internal/chunk"
)

// Generator is what the pipeline needs from the oracle side: one
// screen in, one artifact out. Adapter is the production
// implementation; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, screen *chunk.Screen, known []string, opts Options) (*Artifact, error)
}

// Adapter turns a screen plus a registry snapshot into an oracle call
// and interprets the response. Retries and rate limiting live in the
// Client middleware chain, not here; the adapter only adds the
// per-call timeout.
type Adapter struct {
	client  Client
	timeout time.Duration
}

// DefaultCallTimeout bounds a single oracle call including retries.
const DefaultCallTimeout = 5 * time.Minute

func NewAdapter(client Client, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Adapter{client: client, timeout: timeout}
}

// generateRequest is the wire shape of one oracle request.
type generateRequest struct {
	Screen          any      `json:"screen"`
	ScreenName      string   `json:"screenName"`
	KnownComponents []string `json:"knownComponents,omitempty"`
	Options         Options  `json:"options"`
}

func (a *Adapter) Generate(ctx context.Context, screen *chunk.Screen, known []string, opts Options) (*Artifact, error) {
	opts = opts.withDefaults()
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.client.GenerateJSON(callCtx, buildPrompt(screen.Name, known, opts), generateRequest{
		Screen:          screen.Root,
		ScreenName:      screen.Name,
		KnownComponents: known,
		Options:         opts,
	})
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	art, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	art.ScreenID = screen.ID
	art.Elapsed = elapsed
	for _, d := range art.Components {
		d.ScreensUsed = append(d.ScreensUsed, screen.Name)
		if d.GeneratedAt.IsZero() {
			d.GeneratedAt = time.Now().UTC()
		}
	}
	return art, nil
}
