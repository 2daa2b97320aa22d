// Package handler defines the contract between the engine and the code that
// implements action functions. Instead of resolving classes by name out of a
// process-global symbol table, handler constructors are registered in an
// instance-scoped catalog keyed by (module name, class name); the engine
// resolves through the catalog after the module's files are materialized.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Func is one bound action function: invoked with the merged call parameters,
// it returns the raw result the engine will normalize for transport.
type Func func(ctx context.Context, params map[string]any) (any, error)

// Handler is one instantiated handler class. It exposes one Func per action
// function it implements, keyed by the registry's function name.
type Handler interface {
	Func(name string) (Func, bool)
}

// Factory constructs a handler instance. moduleDir is the module's
// materialized local directory, for handlers that load bundled resources;
// config is the merged, JSON-normalized configuration for this function.
type Factory func(logger *slog.Logger, moduleDir string, config map[string]any) (Handler, error)

type catalogKey struct {
	module string
	class  string
}

// Catalog maps (module, class) pairs to handler factories. A zero Catalog is
// not usable; construct with NewCatalog. Registration normally happens during
// program initialization, but the catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	factories map[catalogKey]Factory
}

func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[catalogKey]Factory)}
}

// Register adds a factory for the given module and class. Registering the
// same pair twice is a programming error and panics.
func (c *Catalog) Register(module string, class string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("handler: nil factory for %s.%s", module, class))
	}
	key := catalogKey{module: module, class: class}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[key]; ok {
		panic(fmt.Sprintf("handler: factory already registered for %s.%s", module, class))
	}
	c.factories[key] = factory
}

// Resolve looks up the factory for a module/class pair.
func (c *Catalog) Resolve(module string, class string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	factory, ok := c.factories[catalogKey{module: module, class: class}]
	return factory, ok
}

// FuncMap is a convenience Handler backed by a plain map of function names.
type FuncMap map[string]Func

func (m FuncMap) Func(name string) (Func, bool) {
	fn, ok := m[name]
	return fn, ok
}
