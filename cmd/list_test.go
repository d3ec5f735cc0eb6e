package cmd

import (
	"testing"

	"github.com/allbin/romflash/link"
)

func TestFilterPorts(t *testing.T) {
	ports := []link.PortInfo{
		{Name: "ttyUSB0"},
		{Name: "ttyACM1"},
		{Name: "ttyS0"},
		{Name: "ttyAMA0"},
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"ttyUSB0", "ttyACM1", "ttyS0", "ttyAMA0"}},
		{"all", []string{"ttyUSB0", "ttyACM1", "ttyS0", "ttyAMA0"}},
		{"usb", []string{"ttyUSB0", "ttyACM1"}},
		{"USB", []string{"ttyUSB0", "ttyACM1"}},
		{"standard", []string{"ttyS0"}},
		{"arm", []string{"ttyAMA0"}},
		{"bogus", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got := filterPorts(ports, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("filterPorts(%q) returned %d ports, want %d", tt.filter, len(got), len(tt.want))
			}
			for i, info := range got {
				if info.Name != tt.want[i] {
					t.Errorf("filterPorts(%q)[%d] = %s, want %s", tt.filter, i, info.Name, tt.want[i])
				}
			}
		})
	}
}

func TestGetPortType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"ttyUSB0", "USB Serial"},
		{"ttyACM0", "USB CDC/ACM"},
		{"ttyAMA0", "ARM Serial"},
		{"ttymxc1", "i.MX Serial"},
		{"ttySAC2", "Samsung Serial"},
		{"ttyTHS0", "Tegra Serial"},
		{"ttyO3", "OMAP Serial"},
		{"ttyS4", "Standard Serial"},
		{"rfcomm0", "Serial Port"},
	}

	for _, tt := range tests {
		if got := getPortType(tt.name); got != tt.want {
			t.Errorf("getPortType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
