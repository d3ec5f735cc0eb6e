package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/romflash/link"
)

type fakeTransport struct{ via string }

type transportCtor struct{ name string }

func (c transportCtor) NewTransport(link.Handle) (Transport, error) {
	return &fakeTransport{via: c.name}, nil
}

type fakeLoader struct {
	via  string
	baud int
	term Terminal
}

type loaderCtor struct{ name string }

func (c loaderCtor) NewLoader(_ Transport, baud int, term Terminal) (Loader, error) {
	return &fakeLoader{via: c.name, baud: baud, term: term}, nil
}

type resetCtor struct{}

type resetRunner struct{}

func (resetRunner) Run(context.Context) error { return nil }

func (resetCtor) NewReset(Transport) (ResetRunner, error) { return resetRunner{}, nil }

func makeTransport(link.Handle) (any, error) {
	return &fakeTransport{via: "func"}, nil
}

func makeLoader(_ any, baud int, term Terminal) (any, error) {
	return &fakeLoader{via: "func", baud: baud, term: term}, nil
}

func TestBindTransportProbeOrder(t *testing.T) {
	tests := []struct {
		name  string
		mod   Symbols
		shape string
		via   string
	}{
		{
			name:  "factory function wins over constructors",
			mod:   Symbols{SymbolMakeTransport: makeTransport, SymbolTransport: transportCtor{"Transport"}},
			shape: SymbolMakeTransport,
			via:   "func",
		},
		{
			name:  "Transport before EsptoolTransport",
			mod:   Symbols{SymbolEsptoolTransport: transportCtor{"Esptool"}, SymbolTransport: transportCtor{"Transport"}},
			shape: SymbolTransport,
			via:   "Transport",
		},
		{
			name:  "EsptoolTransport alone",
			mod:   Symbols{SymbolEsptoolTransport: transportCtor{"Esptool"}},
			shape: SymbolEsptoolTransport,
			via:   "Esptool",
		},
		{
			name:  "default export is flattened",
			mod:   Symbols{SymbolDefault: Symbols{SymbolTransport: transportCtor{"Default"}}},
			shape: "Default.Transport",
			via:   "Default",
		},
		{
			name:  "default export as plain map",
			mod:   Symbols{SymbolDefault: map[string]any{SymbolMakeTransport: TransportFunc(makeTransport)}},
			shape: "Default.MakeTransport",
			via:   "func",
		},
		{
			name:  "root symbols win over default export",
			mod:   Symbols{SymbolEsptoolTransport: transportCtor{"root"}, SymbolDefault: Symbols{SymbolMakeTransport: makeTransport}},
			shape: SymbolEsptoolTransport,
			via:   "root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Bind(tt.mod)
			assert.Equal(t, tt.shape, a.TransportShape())

			tr, err := a.OpenTransport(nil)
			require.NoError(t, err)
			assert.Equal(t, tt.via, tr.(*fakeTransport).via)
		})
	}
}

func TestBindLoaderProbeOrder(t *testing.T) {
	tests := []struct {
		name  string
		mod   Symbols
		shape string
		via   string
	}{
		{"factory function", Symbols{SymbolMakeLoader: makeLoader, SymbolLoader: loaderCtor{"ctor"}}, SymbolMakeLoader, "func"},
		{"constructor", Symbols{SymbolLoader: loaderCtor{"ctor"}}, SymbolLoader, "ctor"},
		{"default constructor", Symbols{SymbolDefault: Symbols{SymbolLoader: loaderCtor{"default"}}}, "Default.ESPLoader", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Bind(tt.mod)
			assert.Equal(t, tt.shape, a.LoaderShape())

			l, err := a.BuildLoader(&fakeTransport{}, 115200, nil)
			require.NoError(t, err)
			loader := l.(*fakeLoader)
			assert.Equal(t, tt.via, loader.via)
			assert.Equal(t, 115200, loader.baud)
			assert.NotNil(t, loader.term, "a nil terminal is replaced")
		})
	}
}

func TestAdapterMissingFactories(t *testing.T) {
	a := Bind(Symbols{"Unrelated": 42, SymbolTransport: "not a constructor"})

	_, err := a.OpenTransport(nil)
	var aerr *AdapterError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, NoTransportFactory, aerr.Kind)

	_, err = a.BuildLoader(nil, 115200, nil)
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, NoLoaderFactory, aerr.Kind)
	assert.Contains(t, err.Error(), "no loader factory")
}

func TestAdapterFactoryFailures(t *testing.T) {
	boom := errors.New("boom")
	a := Bind(Symbols{
		SymbolMakeTransport: func(link.Handle) (any, error) { return nil, boom },
		SymbolMakeLoader:    func(any, int, Terminal) (any, error) { return nil, nil },
	})

	_, err := a.OpenTransport(nil)
	require.ErrorIs(t, err, boom)

	_, err = a.BuildLoader(nil, 115200, nil)
	var aerr *AdapterError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, NoLoaderFactory, aerr.Kind)
	assert.Equal(t, SymbolMakeLoader, aerr.Shape)
}

func TestAdapterResetHelper(t *testing.T) {
	a := Bind(Symbols{SymbolClassicReset: resetCtor{}})
	r, ok := a.ResetHelper(&fakeTransport{})
	require.True(t, ok)
	require.NoError(t, r.Run(context.Background()))

	a = Bind(Symbols{SymbolDefault: Symbols{SymbolClassicReset: resetCtor{}}})
	_, ok = a.ResetHelper(&fakeTransport{})
	assert.True(t, ok, "reset helper is found in the default export")

	a = Bind(Symbols{})
	_, ok = a.ResetHelper(&fakeTransport{})
	assert.False(t, ok)
}
