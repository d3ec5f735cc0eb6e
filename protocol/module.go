package protocol

import (
	"context"
	"fmt"
	"os"
	"plugin"
	"reflect"
	"sort"
	"sync"
)

// Module is a loaded protocol module.
type Module interface {
	Lookup(name string) (any, bool)
}

// Symbols is a Module backed by a map. Nil values count as absent.
type Symbols map[string]any

func (s Symbols) Lookup(name string) (any, bool) {
	v, ok := s[name]
	return v, ok && v != nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Module)
)

// Register makes a statically linked module available under name. It panics
// when name is registered twice.
func Register(name string, m Module) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if m == nil {
		panic("protocol: Register module is nil")
	}
	if _, dup := registry[name]; dup {
		panic("protocol: Register called twice for module " + name)
	}
	registry[name] = m
}

// Registered returns the names of the statically linked modules.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Opener loads a module.
type Opener func(ctx context.Context) (Module, error)

// Open resolves ref to a registered module name or, failing that, a plugin
// file on disk.
func Open(ref string) Opener {
	return func(ctx context.Context) (Module, error) {
		registryMu.RLock()
		m, ok := registry[ref]
		registryMu.RUnlock()
		if ok {
			return m, nil
		}
		if _, err := os.Stat(ref); err != nil {
			return nil, fmt.Errorf("protocol module %q: not registered and not a plugin file: %w", ref, err)
		}
		return openPlugin(ref)
	}
}

func openPlugin(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load plugin %s: %w", path, err)
	}
	return pluginModule{p}, nil
}

type pluginModule struct {
	p *plugin.Plugin
}

// Lookup dereferences exported variables so probes see the value, not the
// *T the plugin package hands out for them.
func (m pluginModule) Lookup(name string) (any, bool) {
	sym, err := m.p.Lookup(name)
	if err != nil {
		return nil, false
	}
	v := reflect.ValueOf(sym)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		switch v.Elem().Kind() {
		case reflect.Interface, reflect.Func, reflect.Map:
			return v.Elem().Interface(), true
		}
	}
	return sym, true
}

// Cache loads a module on first use and keeps it after the first success.
// A failed load is retried on the next call.
type Cache struct {
	open Opener

	mu  sync.Mutex
	mod Module
}

func NewCache(open Opener) *Cache {
	return &Cache{open: open}
}

func (c *Cache) Module(ctx context.Context) (Module, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mod != nil {
		return c.mod, nil
	}
	m, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	c.mod = m
	return m, nil
}
