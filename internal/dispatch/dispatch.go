// Package dispatch simulates every outbound call the workbench would make in
// production: chat completion, retrieval and agent execution. There is no
// network behind it; each kind resolves to a canned result after an artificial
// delay, with an optional injected failure rate so that error paths stay
// testable.
package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

type Kind string

const (
	KindChat  Kind = "chat"
	KindRAG   Kind = "rag"
	KindAgent Kind = "agent"
)

// Failure is the error produced when failure injection trips. No real
// dispatch in this system fails on its own.
type Failure struct {
	Kind Kind
}

func (f *Failure) Error() string {
	return fmt.Sprintf("dispatch: simulated %s backend failure", f.Kind)
}

type Options struct {
	// ChatLatencyMin/Max bound the uniform latency for chat dispatches.
	// Zero values fall back to 1s–3s.
	ChatLatencyMin time.Duration
	ChatLatencyMax time.Duration

	// FixedLatency applies to rag and agent dispatches. Zero means 2s.
	FixedLatency time.Duration

	// FailureRate in [0,1] makes that fraction of dispatches fail with
	// *Failure. Defaults to 0: the mock never fails unless asked to.
	FailureRate float64

	// Seed for the internal RNG; 0 seeds from the clock.
	Seed int64
}

type Handler func(ctx context.Context, payload any) (any, error)

type Dispatcher struct {
	opts Options

	mu       sync.Mutex
	rng      *rand.Rand
	handlers map[Kind]Handler
}

func New(opts Options) *Dispatcher {
	if opts.ChatLatencyMin <= 0 {
		opts.ChatLatencyMin = 1 * time.Second
	}
	if opts.ChatLatencyMax < opts.ChatLatencyMin {
		opts.ChatLatencyMax = opts.ChatLatencyMin + 2*time.Second
	}
	if opts.FixedLatency <= 0 {
		opts.FixedLatency = 2 * time.Second
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	d := &Dispatcher{
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
		handlers: make(map[Kind]Handler),
	}
	d.Register(KindChat, d.handleChat)
	d.Register(KindRAG, d.handleRAG)
	d.Register(KindAgent, d.handleAgent)
	return d
}

func (d *Dispatcher) Register(kind Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Dispatch sleeps for the kind's simulated latency, then resolves the payload
// through the registered handler. The context aborts the wait but a started
// dispatch is never cancelled mid-handler; once the timer fires the result is
// produced.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, payload any) (any, error) {
	d.mu.Lock()
	h, ok := d.handlers[kind]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dispatch: unknown kind %q", kind)
	}

	if err := d.sleep(ctx, d.latencyFor(kind)); err != nil {
		return nil, err
	}

	if d.shouldFail() {
		return nil, &Failure{Kind: kind}
	}

	return h(ctx, payload)
}

func (d *Dispatcher) latencyFor(kind Kind) time.Duration {
	if kind == KindChat {
		d.mu.Lock()
		defer d.mu.Unlock()
		span := d.opts.ChatLatencyMax - d.opts.ChatLatencyMin
		if span <= 0 {
			return d.opts.ChatLatencyMin
		}
		return d.opts.ChatLatencyMin + time.Duration(d.rng.Int63n(int64(span)))
	}
	return d.opts.FixedLatency
}

func (d *Dispatcher) shouldFail() bool {
	if d.opts.FailureRate <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64() < d.opts.FailureRate
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) randTokens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(500) + 100
}
