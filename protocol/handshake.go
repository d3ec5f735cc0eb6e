package protocol

import (
	"context"
	"errors"
)

// ErrNoHandshakeEntrypoint is returned when a loader has none of the
// recognized handshake methods.
var ErrNoHandshakeEntrypoint = errors.New("loader exposes no handshake entry point")

// Handshake is a bound handshake entry point. Run syncs with the ROM
// bootloader and returns the detected chip description, which may be empty.
type Handshake struct {
	Name string
	run  func(ctx context.Context) (string, error)
}

func (h Handshake) Run(ctx context.Context) (string, error) {
	return h.run(ctx)
}

type (
	mainFner  interface{ MainFn(ctx context.Context) (string, error) }
	mainer    interface{ Main(ctx context.Context) (string, error) }
	syncer    interface{ Sync(ctx context.Context) (string, error) }
	connecter interface{ Connect(ctx context.Context) (string, error) }
	detecter  interface{ Detect(ctx context.Context) (string, error) }
)

var handshakeProbes = []struct {
	name string
	bind func(Loader) (func(context.Context) (string, error), bool)
}{
	{"MainFn", func(l Loader) (func(context.Context) (string, error), bool) {
		v, ok := l.(mainFner)
		if !ok {
			return nil, false
		}
		return v.MainFn, true
	}},
	{"Main", func(l Loader) (func(context.Context) (string, error), bool) {
		v, ok := l.(mainer)
		if !ok {
			return nil, false
		}
		return v.Main, true
	}},
	{"Sync", func(l Loader) (func(context.Context) (string, error), bool) {
		v, ok := l.(syncer)
		if !ok {
			return nil, false
		}
		return v.Sync, true
	}},
	{"Connect", func(l Loader) (func(context.Context) (string, error), bool) {
		v, ok := l.(connecter)
		if !ok {
			return nil, false
		}
		return v.Connect, true
	}},
	{"Detect", func(l Loader) (func(context.Context) (string, error), bool) {
		v, ok := l.(detecter)
		if !ok {
			return nil, false
		}
		return v.Detect, true
	}},
}

// ResolveHandshake returns the first handshake entry point l exposes, in the
// order MainFn, Main, Sync, Connect, Detect.
func ResolveHandshake(l Loader) (Handshake, error) {
	if l == nil {
		return Handshake{}, ErrNoHandshakeEntrypoint
	}
	for _, p := range handshakeProbes {
		if run, ok := p.bind(l); ok {
			return Handshake{Name: p.name, run: run}, nil
		}
	}
	return Handshake{}, ErrNoHandshakeEntrypoint
}
