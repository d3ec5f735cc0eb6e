package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncDetectLoader struct{}

func (syncDetectLoader) Sync(context.Context) (string, error)   { return "sync", nil }
func (syncDetectLoader) Detect(context.Context) (string, error) { return "detect", nil }

type mainLoader struct{}

func (mainLoader) MainFn(context.Context) (string, error)  { return "main_fn", nil }
func (mainLoader) Main(context.Context) (string, error)    { return "main", nil }
func (mainLoader) Connect(context.Context) (string, error) { return "connect", nil }

type detectOnlyLoader struct{}

func (detectOnlyLoader) Detect(context.Context) (string, error) { return "", nil }

func TestResolveHandshakeOrder(t *testing.T) {
	tests := []struct {
		name   string
		loader Loader
		entry  string
		result string
	}{
		{"MainFn before Main and Connect", mainLoader{}, "MainFn", "main_fn"},
		{"Sync before Detect", syncDetectLoader{}, "Sync", "sync"},
		{"Detect alone", detectOnlyLoader{}, "Detect", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs, err := ResolveHandshake(tt.loader)
			require.NoError(t, err)
			assert.Equal(t, tt.entry, hs.Name)

			got, err := hs.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.result, got)
		})
	}
}

func TestResolveHandshakeMissing(t *testing.T) {
	_, err := ResolveHandshake(struct{}{})
	assert.ErrorIs(t, err, ErrNoHandshakeEntrypoint)

	_, err = ResolveHandshake(nil)
	assert.ErrorIs(t, err, ErrNoHandshakeEntrypoint)
}
