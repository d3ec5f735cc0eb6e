/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/romflash/link"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  romflash info /dev/ttyUSB0
  romflash info /dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and the bus/device pair that 'romflash reset --usb' resets.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		info, err := link.GetPortInfo(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)
		fmt.Printf("  Type:        %s\n", getPortType(info.Name))

		fmt.Printf("  Bridge:      %s\n", bridgeKind(info))
		fmt.Printf("  Status:      %s\n", portStatus(info.Path))

		if !info.IsUSB() {
			return
		}
		fmt.Println("\nUSB Device Information:")
		for _, f := range []struct{ label, value string }{
			{"Vendor ID", info.VendorID},
			{"Product ID", info.ProductID},
			{"Serial", info.SerialNumber},
			{"Interface", info.InterfaceNumber},
			{"Bus", info.BusNumber},
			{"Device", info.DeviceNumber},
			{"Manufacturer", info.Manufacturer},
			{"Product", info.Product},
		} {
			if f.value != "" {
				fmt.Printf("  %-13s %s\n", f.label+":", f.value)
			}
		}
		if link.IsUSBResetAvailable() && info.BusNumber != "" {
			fmt.Println("\n  USB reset:    available (romflash reset --usb)")
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// bridgeKind tells native USB chips, which re-enumerate when they enter the
// bootloader, apart from USB-UART bridges, which keep their port.
func bridgeKind(info *link.PortInfo) string {
	switch strings.ToLower(info.VendorID) {
	case "":
		return "unknown"
	case "303a":
		return "native USB (port re-enumerates on reset)"
	case "10c4":
		return "CP210x USB-UART"
	case "1a86":
		return "CH34x USB-UART"
	case "0403":
		return "FTDI USB-UART"
	default:
		return "USB-UART"
	}
}

// portStatus reports whether the port can be opened right now.
func portStatus(path string) string {
	d, err := link.NewSystem(link.WithPort(path)).RequestPort(context.Background())
	if err != nil {
		return err.Error()
	}
	switch err := d.Open(); {
	case err == nil:
		_ = d.Close()
		return "available"
	case errors.Is(err, link.ErrDeviceInUse):
		return "in use by another process"
	case errors.Is(err, link.ErrPermissionDenied):
		return "permission denied (add yourself to the dialout group)"
	default:
		return err.Error()
	}
}
