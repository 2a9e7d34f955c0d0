// Package device models a cloud-connected controller: named functions that
// take a string and return an int, and named integer variables. All calls
// are executed one at a time on a single worker goroutine.
package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrClosed          = errors.New("device closed")
)

// DefaultQueueSize bounds the number of calls waiting for the worker.
const DefaultQueueSize = 32

// Function is a remotely callable function.
type Function func(ctx context.Context, arg string) int

// Variable reads one integer of device state.
type Variable func() int

type work func(ctx context.Context)

type result struct {
	value int
	err   error
}

// Device is the registry of functions and variables plus the worker that runs them.
type Device struct {
	id   string
	name string

	mu        sync.RWMutex
	functions map[string]Function
	variables map[string]Variable

	workQueue chan work

	closing   chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
	stopped   chan struct{}
	started   bool
}

// New creates a device. The worker does not run until Start.
func New(id, name string, queueSize int) *Device {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Device{
		id:        id,
		name:      name,
		functions: make(map[string]Function),
		variables: make(map[string]Variable),
		workQueue: make(chan work, queueSize),
		closing:   make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (d *Device) ID() string   { return d.id }
func (d *Device) Name() string { return d.name }

// RegisterFunction exposes fn under name, replacing any previous binding.
func (d *Device) RegisterFunction(name string, fn Function) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.functions[name] = fn
}

// RegisterVariable exposes v under name, replacing any previous binding.
func (d *Device) RegisterVariable(name string, v Variable) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.variables[name] = v
}

// Functions returns the registered function names, sorted.
func (d *Device) Functions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.functions)
}

// Variables returns the registered variable names, sorted.
func (d *Device) Variables() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.variables)
}

// HasFunction reports whether name is registered.
func (d *Device) HasFunction(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.functions[name]
	return ok
}

// Call runs the named function on the worker and waits for its return value.
// A call whose context ends while it is still queued is skipped. Once fn has
// started it runs to completion, even if Call has already returned ctx.Err().
func (d *Device) Call(ctx context.Context, name, arg string) (int, error) {
	d.mu.RLock()
	fn, ok := d.functions[name]
	d.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	// fn gets the caller's context so request-scoped values reach it.
	return d.submit(ctx, name, func(context.Context) int {
		return fn(ctx, arg)
	})
}

// Variable reads the named variable on the worker, so the value never
// reflects a call that is still running.
func (d *Device) Variable(ctx context.Context, name string) (int, error) {
	d.mu.RLock()
	v, ok := d.variables[name]
	d.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}

	return d.submit(ctx, name, func(context.Context) int {
		return v()
	})
}

// Exec runs fn on the worker and waits for it to return.
func (d *Device) Exec(ctx context.Context, fn func(ctx context.Context)) error {
	_, err := d.submit(ctx, "exec", func(c context.Context) int {
		fn(c)
		return 0
	})
	return err
}

// submit queues fn and waits for the result.
func (d *Device) submit(ctx context.Context, name string, fn func(context.Context) int) (int, error) {
	done := make(chan result, 1)
	w := work(func(c context.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("name", name).Msg("Device call panicked")
				done <- result{err: fmt.Errorf("%s panicked: %v", name, rec)}
			}
		}()
		if err := ctx.Err(); err != nil {
			done <- result{err: err}
			return
		}
		done <- result{value: fn(c)}
	})

	select {
	case <-d.closing:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	case d.workQueue <- w:
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-d.stopped:
		// The worker may have run w while draining.
		select {
		case r := <-done:
			return r.value, r.err
		default:
			return 0, ErrClosed
		}
	}
}

// Start launches the worker. It exits when ctx is cancelled or Close is called,
// after running whatever is already queued.
func (d *Device) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.mu.Lock()
		d.started = true
		d.mu.Unlock()
		go d.run(ctx)
	})
}

// Close stops accepting calls and waits for the worker to exit.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		close(d.closing)
	})

	d.mu.RLock()
	started := d.started
	d.mu.RUnlock()
	if started {
		<-d.stopped
	}
}

func (d *Device) run(ctx context.Context) {
	defer close(d.stopped)
	log.Debug().Str("device", d.id).Msg("Device worker started")

	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			return
		case <-d.closing:
			d.drain(ctx)
			return
		case w := <-d.workQueue:
			w(ctx)
		}
	}
}

func (d *Device) drain(ctx context.Context) {
	for {
		select {
		case w := <-d.workQueue:
			w(ctx)
		default:
			return
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
