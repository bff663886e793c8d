package oracle

import (
	"context"
	"encoding/json"
	"sync/atomic"
)

// Ledger accumulates oracle-call cost units (estimated tokens in and
// out) and call counts across a job. Safe for concurrent use.
type Ledger struct {
	calls int64
	units int64
}

func (l *Ledger) Calls() int     { return int(atomic.LoadInt64(&l.calls)) }
func (l *Ledger) CostUnits() int { return int(atomic.LoadInt64(&l.units)) }

func (l *Ledger) add(calls, units int) {
	atomic.AddInt64(&l.calls, int64(calls))
	atomic.AddInt64(&l.units, int64(units))
}

// MeterUsage records every call's estimated token cost into ledger.
func MeterUsage(ledger *Ledger) Middleware {
	return func(next Client) Client {
		return &metered{next: next, ledger: ledger}
	}
}

type metered struct {
	next   Client
	ledger *Ledger
}

func (m *metered) Name() string                { return m.next.Name() }
func (m *metered) Close() error                { return m.next.Close() }
func (m *metered) CountTokens(text string) int { return m.next.CountTokens(text) }

func (m *metered) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, _ := json.Marshal(input)
	cost := m.next.CountTokens(prompt) + m.next.CountTokens(string(in))
	resp, err := m.next.GenerateJSON(ctx, prompt, input)
	if err == nil {
		cost += m.next.CountTokens(string(resp))
	}
	m.ledger.add(1, cost)
	return resp, err
}
