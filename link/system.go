package link

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind distinguishes device arrival from removal.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
)

func (k EventKind) String() string {
	if k == EventConnect {
		return "connect"
	}
	return "disconnect"
}

// Event is a device-node arrival or removal. Handle is nil for removals of
// devices System never handed out.
type Event struct {
	Kind   EventKind
	Path   string
	Handle Handle
	At     time.Time
}

// Chooser picks one port out of the candidates. It returns
// ErrSelectionCancelled when the user backs out.
type Chooser func(ctx context.Context, ports []PortInfo) (string, error)

// FixedPort is a Chooser that always selects path.
func FixedPort(path string) Chooser {
	return func(context.Context, []PortInfo) (string, error) {
		return path, nil
	}
}

// FirstPort selects the first USB port, or the first port when none is USB.
func FirstPort(_ context.Context, ports []PortInfo) (string, error) {
	if len(ports) == 0 {
		return "", ErrNoPorts
	}
	for _, p := range ports {
		if p.IsUSB() {
			return p.Path, nil
		}
	}
	return ports[0].Path, nil
}

// System is the host serial platform: it enumerates ports, lets a Chooser
// pick one, and reports device arrival through fsnotify on the device
// directory. It preserves Handle identity per device-node incarnation.
//
// Like a browser's serial permission model, only devices the Chooser
// selected are granted: Ports and Subscribe report granted devices and
// nothing else.
type System struct {
	devDir   string
	choose   Chooser
	accept   func(path string) bool
	describe func(path string) PortInfo

	mu      sync.Mutex
	devices map[string]*Device
	grants  []PortInfo
}

// SystemOption configures a System
type SystemOption func(*System)

// WithChooser sets the device chooser. The default is FirstPort.
func WithChooser(c Chooser) SystemOption {
	return func(s *System) {
		s.choose = c
	}
}

// WithPort skips the chooser and always selects path.
func WithPort(path string) SystemOption {
	return WithChooser(FixedPort(path))
}

// WithPortFilter replaces the check that decides whether a node under the
// device directory is a usable port. The default requires a character
// device.
func WithPortFilter(accept func(path string) bool) SystemOption {
	return func(s *System) {
		s.accept = accept
	}
}

// WithDevDir changes where device nodes are looked up.
func WithDevDir(dir string) SystemOption {
	return func(s *System) {
		s.devDir = dir
	}
}

func NewSystem(opts ...SystemOption) *System {
	s := &System{
		devDir:   DefaultDevDir,
		choose:   FirstPort,
		accept:   isCharacterDevice,
		describe: describe,
		devices:  make(map[string]*Device),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check verifies that this host can do serial I/O at all.
func (s *System) Check() error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
	f, err := os.Open(s.devDir)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, s.devDir)
		}
		return err
	}
	return f.Close()
}

// RequestPort runs the chooser over the current ports and returns the Handle
// for the selection.
func (s *System) RequestPort(ctx context.Context) (Handle, error) {
	paths, err := listPortsIn(s.devDir, s.accept)
	if err != nil {
		return nil, err
	}
	infos := make([]PortInfo, 0, len(paths))
	for _, p := range paths {
		infos = append(infos, s.describe(p))
	}

	path, err := s.choose(ctx, infos)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrSelectionCancelled
	}
	d, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	s.grant(d.Info())
	return d, nil
}

func (s *System) grant(info PortInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.Path == info.Path && g.SameDevice(info) {
			return
		}
	}
	s.grants = append(s.grants, info)
}

func (s *System) granted(info PortInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.SameDevice(info) {
			return true
		}
	}
	return false
}

// Ports returns a Handle for every granted device currently present.
func (s *System) Ports(ctx context.Context) ([]Handle, error) {
	paths, err := listPortsIn(s.devDir, s.accept)
	if err != nil {
		return nil, err
	}
	handles := make([]Handle, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := s.resolve(p)
		if err != nil {
			// the node vanished between ReadDir and Stat
			continue
		}
		if s.granted(d.Info()) {
			handles = append(handles, d)
		}
	}
	return handles, nil
}

// resolve returns the Device for path, minting a new one when the node was
// recreated since the last lookup.
func (s *System) resolve(path string) (*Device, error) {
	key, err := statNode(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.devices[path]; ok && d.node == key {
		return d, nil
	}
	d := newDevice(s.describe(path), key)
	s.devices[path] = d
	return d, nil
}

func (s *System) forget(path string) *Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.devices[path]
	delete(s.devices, path)
	return d
}

// Subscribe streams arrival and removal of granted devices until ctx is
// done. The channel is closed once the watcher has shut down.
func (s *System) Subscribe(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create device watcher: %w", err)
	}
	if err := watcher.Add(s.devDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.devDir, err)
	}

	events := make(chan Event, 8)
	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				out, ok := s.translate(ev)
				if !ok {
					continue
				}
				select {
				case events <- out:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return events, nil
}

func (s *System) translate(ev fsnotify.Event) (Event, bool) {
	if !IsSerialName(filepath.Base(ev.Name)) {
		return Event{}, false
	}
	now := time.Now()

	switch {
	case ev.Has(fsnotify.Create):
		if !s.accept(ev.Name) {
			return Event{}, false
		}
		d, err := s.resolve(ev.Name)
		if err != nil || !s.granted(d.Info()) {
			return Event{}, false
		}
		return Event{Kind: EventConnect, Path: ev.Name, Handle: d, At: now}, true
	case ev.Has(fsnotify.Remove):
		d := s.forget(ev.Name)
		if d == nil {
			if !s.granted(PortInfo{Path: ev.Name}) {
				return Event{}, false
			}
			return Event{Kind: EventDisconnect, Path: ev.Name, At: now}, true
		}
		if !s.granted(d.Info()) {
			return Event{}, false
		}
		return Event{Kind: EventDisconnect, Path: ev.Name, Handle: d, At: now}, true
	}
	return Event{}, false
}
