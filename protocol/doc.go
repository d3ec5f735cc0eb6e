// Package protocol binds an opaque bootloader protocol module to the two
// factories the flasher needs: one that wraps a link.Handle in a transport
// and one that builds a loader over that transport.
//
// Protocol modules are not compiled against a fixed interface. A module is
// anything that can look up exported symbols by name: a Go plugin built
// with -buildmode=plugin, or a Symbols map registered at init time. Bind
// probes the symbols in a fixed order and keeps the first shape it
// recognizes.
//
//	func init() {
//	    protocol.Register("esptool", protocol.Symbols{
//	        "MakeTransport": func(h link.Handle) (any, error) { ... },
//	        "ESPLoader":     loaderCtor{},
//	    })
//	}
//
// Loaders are probed the same way for their handshake entry point; see
// ResolveHandshake.
package protocol
