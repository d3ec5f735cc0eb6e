/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/romflash/firmware"
	"github.com/allbin/romflash/link"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port>",
	Short: "Reset the chip into its application",
	Long: `Reset the chip so it boots the flashed application.

By default the same DTR/RTS sequence used after a flash is sent on the
port. With --usb, or with --serial, a USB-level reset is performed instead.
This can recover devices that are hung or unresponsive without physically
unplugging them, but the device re-enumerates and the port path may change.

USB resets need the usbreset utility (from usbutils) and usually root.

Examples:
  romflash reset /dev/ttyACM0
  sudo romflash reset --usb /dev/ttyUSB0
  sudo romflash reset --serial 7C:DF:A1:00:11:22`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		if serialFlag == "" && len(args) != 1 {
			return errors.New("requires either a port path argument or --serial flag")
		}
		if serialFlag != "" && len(args) > 0 {
			return errors.New("cannot specify both port path and --serial flag")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		serialFlag, _ := cmd.Flags().GetString("serial")
		usb, _ := cmd.Flags().GetBool("usb")

		ctx, stop := signalContext(cmd)
		defer stop()

		if !usb && serialFlag == "" {
			if err := pulsePort(ctx, args[0], link.ResetSequence, firmware.DefaultResetSettle); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Reset sequence sent to %s\n", args[0])
			return
		}

		if !link.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		var err error
		if serialFlag != "" {
			fmt.Printf("Resetting USB device with serial: %s\n", serialFlag)
			err = link.ResetUSBDeviceBySerial(ctx, serialFlag)
		} else {
			fmt.Printf("Resetting USB device: %s\n", args[0])
			err = link.ResetUSBDevice(ctx, args[0])
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, link.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
			}
			os.Exit(1)
		}

		fmt.Println("USB device reset successfully")
		fmt.Println("Device will re-enumerate (port path may change)")
		fmt.Println("\nUse 'romflash list --table' to see updated device list")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().Bool("usb", false, "Perform a USB-level reset instead of a signal reset")
	resetCmd.Flags().StringP("serial", "s", "", "USB-reset the device with this serial number")
}
