// Package link provides the serial-device layer used by the flasher: device
// handles, the raw termios port behind them, DTR/RTS control-line pulses,
// port discovery and the host platform that hands out handles.
//
// The package is Linux-first. Other platforms compile but report
// ErrUnsupportedPlatform from Open and Check.
//
// # Handles and identity
//
// A Handle is one physical connection instance of a device. The System
// platform keeps a single *Device per device node, keyed by path and node
// identity, so enumerating twice returns the same Handle value while the
// node is unchanged. When a device re-enumerates (for example after a USB
// reset or a reboot into the ROM bootloader) the kernel recreates the node
// and System hands out a new *Device. Comparing two Handle values with ==
// therefore answers "is this the same connection instance".
//
//	sys := link.NewSystem(link.WithPort("/dev/ttyUSB0"))
//	h, err := sys.RequestPort(ctx)
//	if err != nil {
//	    return err
//	}
//	if err := h.Open(link.WithBaudRate(115200)); err != nil {
//	    return err
//	}
//	defer h.Close()
//
// # Control lines
//
// Most USB-UART bridges wire DTR and RTS to the chip's boot-strap and enable
// pins. Pulse applies a sequence of line states with a settle delay between
// steps:
//
//	err := link.Pulse(ctx, h, link.BootloaderSequence, 100*time.Millisecond)
//
// Failures to drive the lines are reported as *TransientLinkError, since
// they almost always mean the device went away under us.
//
// # Discovery
//
//	ports, err := link.ListPorts()
//	for _, p := range ports {
//	    info, _ := link.GetPortInfo(p)
//	    fmt.Printf("%s: %s (VID=%s PID=%s)\n", info.Path, info.Description, info.VendorID, info.ProductID)
//	}
//
// USB metadata comes from go.bug.st/serial/enumerator, bus and device
// numbers from sysfs.
package link
