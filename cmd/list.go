/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/romflash/internal/tui/styles"
	"github.com/allbin/romflash/link"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports a chip could be attached to.

USB ports show vendor and product IDs, the product name and serial number
when the kernel or the OS enumerator reports them. ESP32-S2/S3 boards with
native USB appear as ttyACM devices; boards with a USB-UART bridge appear as
ttyUSB devices.

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := link.ListPortInfos()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(filtered)
		} else {
			renderSimple(filtered)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []link.PortInfo, filterType string) []link.PortInfo {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []link.PortInfo
	for _, info := range ports {
		name := strings.ToLower(info.Name)
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, info)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, info)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, info)
			}
		}
	}
	return filtered
}

const (
	colPort    = "port"
	colType    = "type"
	colProduct = "product"
	colVIDPID  = "vidpid"
	colSerial  = "serial"
)

// renderTable renders the port list as a static bordered table
func renderTable(ports []link.PortInfo) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))

	rows := make([]table.Row, 0, len(ports))
	for _, info := range ports {
		product := info.Product
		if product == "" {
			product = info.Description
		}
		vidpid := "-"
		if info.VendorID != "" {
			vidpid = info.VendorID + ":" + info.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			colPort:    info.Path,
			colType:    getPortType(info.Name),
			colProduct: product,
			colVIDPID:  vidpid,
			colSerial:  info.SerialNumber,
		}))
	}

	t := table.New([]table.Column{
		table.NewColumn(colPort, "Port", 16),
		table.NewColumn(colType, "Type", 16),
		table.NewColumn(colProduct, "Product", 28),
		table.NewColumn(colVIDPID, "VID:PID", 10),
		table.NewColumn(colSerial, "Serial", 20),
	}).
		WithRows(rows).
		HeaderStyle(styles.TableHeaderStyle).
		WithBaseStyle(styles.TableBaseStyle).
		BorderRounded()

	fmt.Println(t.View())
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []link.PortInfo) {
	for _, info := range ports {
		fmt.Println(info.Path)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
