// Package lifecycle coordinates startup and shutdown hooks across systems.
// Systems register hooks during initialization; the coordinator runs them
// when the application starts and drains shutdown hooks on stop.
package lifecycle

import (
	"context"
	"sync"
)

// Coordinator tracks startup and shutdown hooks and owns the root context
// observed by long-running systems.
type Coordinator struct {
	ctx      context.Context
	cancel   context.CancelFunc
	startup  []func()
	shutdown []func()
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

// New creates a coordinator with a cancellable root context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the root context. It is cancelled when Stop is called.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a hook to run when Start is called.
// Hooks registered after Start run immediately.
func (c *Coordinator) OnStartup(fn func()) {
	c.mu.Lock()
	started := c.started
	if !started {
		c.startup = append(c.startup, fn)
	}
	c.mu.Unlock()

	if started {
		fn()
	}
}

// OnShutdown registers a hook that runs in its own goroutine once Start
// is called. Shutdown hooks typically block on Context().Done() and then
// perform their teardown; Stop waits for all of them to return.
func (c *Coordinator) OnShutdown(fn func()) {
	c.mu.Lock()
	started := c.started
	if !started {
		c.shutdown = append(c.shutdown, fn)
	}
	c.mu.Unlock()

	if started {
		c.launch(fn)
	}
}

// Start runs all registered startup hooks in registration order and
// launches shutdown hooks. It is a no-op when called twice.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	startup := c.startup
	shutdown := c.shutdown
	c.mu.Unlock()

	for _, fn := range startup {
		fn()
	}
	for _, fn := range shutdown {
		c.launch(fn)
	}
}

// Stop cancels the root context and waits for all shutdown hooks to return.
func (c *Coordinator) Stop() {
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) launch(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}
