/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/romflash/link"
)

// bootloaderCmd represents the bootloader command
var bootloaderCmd = &cobra.Command{
	Use:   "bootloader <port>",
	Short: "Put the chip into its ROM bootloader",
	Long: `Pulse DTR and RTS on the port so the chip restarts into its ROM
bootloader: reset is held while IO0 is released, then reset is released
with IO0 pulled low.

This only drives the control lines; no handshake is attempted. Boards
with native USB will re-enumerate, so the port path may change.

Examples:
  romflash bootloader /dev/ttyUSB0
  romflash bootloader /dev/ttyACM0 --settle 200ms`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settle, _ := cmd.Flags().GetDuration("settle")

		ctx, stop := signalContext(cmd)
		defer stop()

		if err := pulsePort(ctx, args[0], link.BootloaderSequence, settle); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bootloader sequence sent to %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(bootloaderCmd)

	bootloaderCmd.Flags().Duration("settle", 100*time.Millisecond, "delay after each signal step")
}

// pulsePort opens path, applies seq and closes it again.
func pulsePort(ctx context.Context, path string, seq []link.Signals, settle time.Duration) error {
	sys := link.NewSystem(link.WithPort(path))
	if err := sys.Check(); err != nil {
		return err
	}
	h, err := sys.RequestPort(ctx)
	if err != nil {
		return err
	}
	if err := h.Open(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer h.Close()

	for i, step := range seq {
		fmt.Printf("  step %d: %s\n", i+1, step)
	}
	return link.Pulse(ctx, h, seq, settle)
}
