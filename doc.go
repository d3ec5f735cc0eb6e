// Package romflash flashes application firmware onto Espressif chips over a
// serial link.
//
// A Session walks one device from port selection to a ready bootloader:
// it opens the port at 115200 baud, pulses DTR/RTS to enter the ROM
// bootloader, binds a protocol module and runs its handshake. Chips with
// native USB drop their CDC port when they reset, so a handshake that fails
// with a link error waits for the device to come back and retries once on
// the new handle.
//
// # Basic Usage
//
//	sys := link.NewSystem(link.WithPort("/dev/ttyACM0"))
//	modules := protocol.NewCache(protocol.Open("esptool"))
//
//	s := romflash.New(sys, modules, romflash.WithLogger(logger))
//	defer s.Close()
//
//	chip, err := s.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	if chip == "" {
//	    return nil // selection cancelled
//	}
//
//	img, err := firmware.LoadImage("app.bin")
//	if err != nil {
//	    return err
//	}
//	res, err := s.Flash(ctx, img)
//
// # Protocol Modules
//
// The bootloader protocol itself lives in a module registered with
// protocol.Register or loaded as a Go plugin. The module may expose its
// transport and loader as plain functions or as constructors, at the top
// level or under a "Default" symbol. See package protocol for the accepted
// shapes.
//
// # Observing
//
// An Observer receives the one-line status, write progress and a single
// alert per fatal error. Metrics receives connect, rebind and flash
// outcomes.
package romflash
