package oracle

import (
	"context"
	"encoding/json"
	"errors"
)

// Client is the raw interface to the code-generation oracle. A Client
// focuses on the call itself; cross-cutting concerns (retry, rate
// limiting, usage accounting) are layered on as Middleware.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	CountTokens(text string) int
	Close() error
}

// ErrEmptyResponse is returned when the oracle answers with no content.
var ErrEmptyResponse = errors.New("empty response from oracle")

// PermanentError marks a failure that will not resolve with retries,
// e.g. a malformed request the oracle rejected. Retry middleware gives
// up immediately on it.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in
// its chain.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// estimateTokens is the shared heuristic for clients that cannot ask
// their backend for an exact count: roughly four bytes per token.
func estimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
