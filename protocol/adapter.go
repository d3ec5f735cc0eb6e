package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/allbin/romflash/link"
)

// Well-known module symbols, in probe order.
const (
	SymbolMakeTransport    = "MakeTransport"
	SymbolTransport        = "Transport"
	SymbolEsptoolTransport = "EsptoolTransport"
	SymbolMakeLoader       = "MakeLoader"
	SymbolLoader           = "ESPLoader"
	SymbolClassicReset     = "ClassicReset"
	SymbolDefault          = "Default"
)

type (
	// Transport is the module's wrapper around a Handle. Only the module
	// knows its type.
	Transport = any

	// Loader is the module's bootloader driver. Its capabilities are found
	// by probing; see ResolveHandshake and the firmware package.
	Loader = any
)

// TransportFunc builds a transport over an open handle.
type TransportFunc func(h link.Handle) (Transport, error)

// TransportConstructor is a constructor-style transport factory.
type TransportConstructor interface {
	NewTransport(h link.Handle) (Transport, error)
}

// LoaderFunc builds a loader over a transport.
type LoaderFunc func(t Transport, baud int, term Terminal) (Loader, error)

// LoaderConstructor is a constructor-style loader factory.
type LoaderConstructor interface {
	NewLoader(t Transport, baud int, term Terminal) (Loader, error)
}

// ResetRunner performs the module's own reset-into-bootloader sequence.
type ResetRunner interface {
	Run(ctx context.Context) error
}

// ResetConstructor builds a ResetRunner for a transport.
type ResetConstructor interface {
	NewReset(t Transport) (ResetRunner, error)
}

// AdapterErrorKind says which factory could not be found or used.
type AdapterErrorKind int

const (
	NoTransportFactory AdapterErrorKind = iota
	NoLoaderFactory
)

func (k AdapterErrorKind) String() string {
	switch k {
	case NoTransportFactory:
		return "no transport factory"
	case NoLoaderFactory:
		return "no loader factory"
	default:
		return "unknown"
	}
}

// AdapterError reports a module that does not expose a usable factory.
type AdapterError struct {
	Kind  AdapterErrorKind
	Shape string
	Err   error
}

func (e *AdapterError) Error() string {
	switch {
	case e.Err != nil && e.Shape != "":
		return fmt.Sprintf("protocol adapter: %s via %s: %v", e.Kind, e.Shape, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("protocol adapter: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("protocol adapter: %s", e.Kind)
	}
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Adapter holds the factories bound from one module.
type Adapter struct {
	transport      TransportFunc
	loader         LoaderFunc
	reset          func(Transport) (ResetRunner, error)
	transportShape string
	loaderShape    string
}

// TransportShape names the symbol the transport factory was bound from, or
// "" when none matched.
func (a *Adapter) TransportShape() string { return a.transportShape }

// LoaderShape names the symbol the loader factory was bound from.
func (a *Adapter) LoaderShape() string { return a.loaderShape }

// OpenTransport wraps h using the bound transport factory.
func (a *Adapter) OpenTransport(h link.Handle) (Transport, error) {
	if a.transport == nil {
		return nil, &AdapterError{Kind: NoTransportFactory}
	}
	t, err := a.transport(h)
	if err != nil {
		return nil, fmt.Errorf("open transport via %s: %w", a.transportShape, err)
	}
	if t == nil {
		return nil, &AdapterError{Kind: NoTransportFactory, Shape: a.transportShape, Err: errNilResult}
	}
	return t, nil
}

// BuildLoader builds a loader over t using the bound loader factory.
func (a *Adapter) BuildLoader(t Transport, baud int, term Terminal) (Loader, error) {
	if a.loader == nil {
		return nil, &AdapterError{Kind: NoLoaderFactory}
	}
	if term == nil {
		term = discardTerminal{}
	}
	l, err := a.loader(t, baud, term)
	if err != nil {
		return nil, fmt.Errorf("build loader via %s: %w", a.loaderShape, err)
	}
	if l == nil {
		return nil, &AdapterError{Kind: NoLoaderFactory, Shape: a.loaderShape, Err: errNilResult}
	}
	return l, nil
}

// ResetHelper returns the module's reset helper for t, if it ships one.
func (a *Adapter) ResetHelper(t Transport) (ResetRunner, bool) {
	if a.reset == nil {
		return nil, false
	}
	r, err := a.reset(t)
	if err != nil || r == nil {
		return nil, false
	}
	return r, true
}

var errNilResult = errors.New("factory returned nil")

type transportProbe struct {
	shape string
	bind  func(Module) (TransportFunc, bool)
}

type loaderProbe struct {
	shape string
	bind  func(Module) (LoaderFunc, bool)
}

var transportProbes = []transportProbe{
	{SymbolMakeTransport, transportFuncAt(SymbolMakeTransport)},
	{SymbolTransport, transportCtorAt(SymbolTransport)},
	{SymbolEsptoolTransport, transportCtorAt(SymbolEsptoolTransport)},
	{SymbolDefault + "." + SymbolMakeTransport, inDefault(transportFuncAt(SymbolMakeTransport))},
	{SymbolDefault + "." + SymbolTransport, inDefault(transportCtorAt(SymbolTransport))},
	{SymbolDefault + "." + SymbolEsptoolTransport, inDefault(transportCtorAt(SymbolEsptoolTransport))},
}

var loaderProbes = []loaderProbe{
	{SymbolMakeLoader, loaderFuncAt(SymbolMakeLoader)},
	{SymbolLoader, loaderCtorAt(SymbolLoader)},
	{SymbolDefault + "." + SymbolLoader, inDefault(loaderCtorAt(SymbolLoader))},
}

// Bind probes m for its factories. It never fails: a missing factory is
// reported when it is first used.
func Bind(m Module) *Adapter {
	a := &Adapter{}
	for _, p := range transportProbes {
		if f, ok := p.bind(m); ok {
			a.transport, a.transportShape = f, p.shape
			break
		}
	}
	for _, p := range loaderProbes {
		if f, ok := p.bind(m); ok {
			a.loader, a.loaderShape = f, p.shape
			break
		}
	}
	for _, mod := range []Module{m, defaultOf(m)} {
		if mod == nil {
			continue
		}
		if sym, ok := mod.Lookup(SymbolClassicReset); ok {
			if c, ok := sym.(ResetConstructor); ok {
				a.reset = c.NewReset
				break
			}
		}
	}
	return a
}

func transportFuncAt(name string) func(Module) (TransportFunc, bool) {
	return func(m Module) (TransportFunc, bool) {
		sym, ok := m.Lookup(name)
		if !ok {
			return nil, false
		}
		switch f := sym.(type) {
		case TransportFunc:
			return f, true
		case func(link.Handle) (Transport, error):
			return f, true
		}
		return nil, false
	}
}

func transportCtorAt(name string) func(Module) (TransportFunc, bool) {
	return func(m Module) (TransportFunc, bool) {
		sym, ok := m.Lookup(name)
		if !ok {
			return nil, false
		}
		if c, ok := sym.(TransportConstructor); ok {
			return c.NewTransport, true
		}
		return nil, false
	}
}

func loaderFuncAt(name string) func(Module) (LoaderFunc, bool) {
	return func(m Module) (LoaderFunc, bool) {
		sym, ok := m.Lookup(name)
		if !ok {
			return nil, false
		}
		switch f := sym.(type) {
		case LoaderFunc:
			return f, true
		case func(Transport, int, Terminal) (Loader, error):
			return f, true
		}
		return nil, false
	}
}

func loaderCtorAt(name string) func(Module) (LoaderFunc, bool) {
	return func(m Module) (LoaderFunc, bool) {
		sym, ok := m.Lookup(name)
		if !ok {
			return nil, false
		}
		if c, ok := sym.(LoaderConstructor); ok {
			return c.NewLoader, true
		}
		return nil, false
	}
}

// inDefault runs probe against the module's Default export.
func inDefault[F any](probe func(Module) (F, bool)) func(Module) (F, bool) {
	return func(m Module) (F, bool) {
		d := defaultOf(m)
		if d == nil {
			var zero F
			return zero, false
		}
		return probe(d)
	}
}

func defaultOf(m Module) Module {
	sym, ok := m.Lookup(SymbolDefault)
	if !ok {
		return nil
	}
	switch d := sym.(type) {
	case Module:
		return d
	case map[string]any:
		return Symbols(d)
	}
	return nil
}
