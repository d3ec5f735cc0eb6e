/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/romflash"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Enter the bootloader and report the chip",
	Long: `Select a port, pulse the chip into its ROM bootloader and run the
protocol handshake without writing anything. Prints the detected chip.

Useful for checking wiring, permissions and the protocol module before a
flash.

Examples:
  romflash connect
  romflash connect --port /dev/ttyACM0 --module ./esptool.so
  romflash connect --port /dev/ttyUSB0 --diagnostics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(false)
		if err != nil {
			return err
		}
		defer e.close()

		ctx, stop := signalContext(cmd)
		defer stop()

		s := e.newSession(e.chooser(), newPlainObserver())
		defer s.Close()

		chip, err := s.Connect(ctx)
		if diag, _ := cmd.Flags().GetBool("diagnostics"); diag {
			printDiagnostics(s.Diagnostics())
		}
		if err != nil {
			return err
		}
		if chip == "" {
			return nil
		}

		fmt.Printf("Chip: %s\n", chip)
		if h := s.Handle(); h != nil {
			fmt.Printf("Port: %s\n", h.Path())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().BoolP("diagnostics", "d", false, "print connect bookkeeping after the attempt")
}

func printDiagnostics(d romflash.Diagnostics) {
	stamp := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("15:04:05.000")
	}
	fmt.Printf("\nDiagnostics:\n")
	fmt.Printf("  State:             %s\n", d.State)
	fmt.Printf("  Connect calls:     %d\n", d.ConnectCalls)
	fmt.Printf("  Last attempt:      %s\n", stamp(d.LastAttempt))
	fmt.Printf("  Last connect:      %s\n", stamp(d.LastConnectEvent))
	fmt.Printf("  Last disconnect:   %s\n", stamp(d.LastDisconnectEvent))
}
