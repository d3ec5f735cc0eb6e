//go:build !linux

package link

import (
	"errors"
	"os"
)

type port struct{}

type nodeKey struct {
	size  int64
	mtime int64
}

func statNode(path string) (nodeKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nodeKey{}, ErrDeviceNotFound
		}
		return nodeKey{}, err
	}
	return nodeKey{size: info.Size(), mtime: info.ModTime().UnixNano()}, nil
}

func getBaudRate(rate int) (uint32, error) {
	if rate <= 0 {
		return 0, ErrInvalidBaudRate
	}
	return uint32(rate), nil
}

func openPort(string, Config) (*port, error) {
	return nil, ErrUnsupportedPlatform
}

func (p *port) setSignals(Signals) error  { return ErrUnsupportedPlatform }
func (p *port) read([]byte) (int, error)  { return 0, ErrUnsupportedPlatform }
func (p *port) write([]byte) (int, error) { return 0, ErrUnsupportedPlatform }
func (p *port) close() error              { return nil }
func isGone(error) bool                   { return false }
