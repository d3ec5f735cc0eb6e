package link

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	for _, port := range ports {
		if !strings.HasPrefix(port, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port)
		}
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}

	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},
		{"/dev/zero", true},
		{os.TempDir(), false},
		{"/nonexistent", false},
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestIsSerialName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"ttyUSB0", true},
		{"ttyUSB1", true},
		{"ttyACM0", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"tty1", false},
		{"tty2", false},
		{"console", false},
		{"ptmx", false},
		{"ptyp0", false},
		{"random", false},
		{"urandom", false},
		{"ttyUSB", false},
	}

	for _, tt := range tests {
		if got := IsSerialName(tt.name); got != tt.expected {
			t.Errorf("IsSerialName(%s) = %v, expected %v", tt.name, got, tt.expected)
		}
	}
}

func TestListPortsInFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyUSB1", "ttyACM0", "tty3", "ttyUSB0", "null"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	ports, err := listPortsIn(dir, func(string) bool { return true })
	if err != nil {
		t.Fatalf("listPortsIn failed: %v", err)
	}

	expected := []string{
		filepath.Join(dir, "ttyACM0"),
		filepath.Join(dir, "ttyUSB0"),
		filepath.Join(dir, "ttyUSB1"),
	}
	if len(ports) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, ports)
	}
	for i := range expected {
		if ports[i] != expected[i] {
			t.Errorf("ports[%d] = %s, expected %s", i, ports[i], expected[i])
		}
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
		{"unknown", "Serial Port"},
	}

	for _, test := range tests {
		result := getPortDescription(test.name)
		if result != test.expected {
			t.Errorf("getPortDescription(%s) = %s, expected %s", test.name, result, test.expected)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo failed for /dev/null: %v", err)
	}
	if info.Name != "null" {
		t.Errorf("Expected name 'null', got '%s'", info.Name)
	}
	if info.Description == "" {
		t.Error("Description should not be empty")
	}

	_, err = GetPortInfo("/dev/nonexistent")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestReadSysfsFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  *string
		expected string
	}{
		{"normal file", ptr("1234\n"), "1234"},
		{"file with spaces", ptr("  test value  \n"), "test value"},
		{"nonexistent file", nil, ""},
		{"empty file", ptr(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}
			if got := readSysfsFile(path); got != tt.expected {
				t.Errorf("readSysfsFile() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func ptr(s string) *string { return &s }

// fakeSysfs lays out class/tty/<name>/device -> .../<usbdev>/<iface>/<name>
// the way the kernel does for ttyUSB nodes.
func fakeSysfs(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()

	devicePath := filepath.Join(root, "devices", "usb5", "5-2.3.1")
	interfacePath := filepath.Join(devicePath, "5-2.3.1:1.0")
	ttyPath := filepath.Join(interfacePath, name)
	classPath := filepath.Join(root, "class", "tty", name)

	for _, dir := range []string{ttyPath, classPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(devicePath, file), []byte(content+"\n"), 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(interfacePath, "bInterfaceNumber"), []byte("00\n"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.Symlink(ttyPath, filepath.Join(classPath, "device")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return root
}

func TestEnrichUSBInfo(t *testing.T) {
	root := fakeSysfs(t, "ttyUSB0", map[string]string{
		"idVendor":     "10c4",
		"idProduct":    "ea60",
		"serial":       "0001",
		"manufacturer": "Silicon Labs",
		"product":      "CP2102N USB to UART Bridge Controller",
		"busnum":       "5",
		"devnum":       "7",
	})
	old := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() { sysfsRoot = old })

	info := &PortInfo{Name: "ttyUSB0", Path: "/dev/ttyUSB0"}
	enrichUSBInfo(info)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"VendorID", info.VendorID, "10c4"},
		{"ProductID", info.ProductID, "ea60"},
		{"SerialNumber", info.SerialNumber, "0001"},
		{"InterfaceNumber", info.InterfaceNumber, "00"},
		{"BusNumber", info.BusNumber, "5"},
		{"DeviceNumber", info.DeviceNumber, "7"},
		{"Manufacturer", info.Manufacturer, "Silicon Labs"},
		{"Product", info.Product, "CP2102N USB to UART Bridge Controller"},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %q, expected %q", tt.name, tt.got, tt.expected)
		}
	}
	if !info.IsUSB() {
		t.Error("expected IsUSB() to be true")
	}
}

func TestEnrichUSBInfoGracefulFailure(t *testing.T) {
	old := sysfsRoot
	sysfsRoot = t.TempDir()
	t.Cleanup(func() { sysfsRoot = old })

	info := &PortInfo{Name: "ttyUSB999", Path: "/dev/ttyUSB999"}
	enrichUSBInfo(info)

	if info.VendorID != "" || info.ProductID != "" || info.SerialNumber != "" {
		t.Errorf("expected empty USB fields, got %+v", info)
	}
}

func TestEnrichFromEnumerator(t *testing.T) {
	old := detailedPorts
	detailedPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "303A", PID: "0002", SerialNumber: "7C:DF:A1", Product: "ESP32-S2"},
			{Name: "/dev/ttyS0", IsUSB: false},
		}, nil
	}
	t.Cleanup(func() { detailedPorts = old })

	infos := []PortInfo{
		{Name: "ttyACM0", Path: "/dev/ttyACM0"},
		{Name: "ttyS0", Path: "/dev/ttyS0"},
		{Name: "ttyUSB0", Path: "/dev/ttyUSB0", VendorID: "1a86", ProductID: "7523"},
	}
	enrichFromEnumerator(infos)

	if infos[0].VendorID != "303a" || infos[0].ProductID != "0002" {
		t.Errorf("expected lower-cased VID/PID, got %s:%s", infos[0].VendorID, infos[0].ProductID)
	}
	if infos[0].Product != "ESP32-S2" {
		t.Errorf("expected product from enumerator, got %q", infos[0].Product)
	}
	if infos[1].VendorID != "" {
		t.Errorf("non-USB port should stay empty, got %q", infos[1].VendorID)
	}
	if infos[2].VendorID != "1a86" {
		t.Errorf("sysfs data should win, got %q", infos[2].VendorID)
	}
}

func TestPortInfoLabel(t *testing.T) {
	tests := []struct {
		info     PortInfo
		expected string
	}{
		{PortInfo{Path: "/dev/ttyACM0", Product: "ESP32-S2"}, "/dev/ttyACM0 (ESP32-S2)"},
		{PortInfo{Path: "/dev/ttyUSB0", VendorID: "10c4", ProductID: "ea60"}, "/dev/ttyUSB0 (10c4:ea60)"},
		{PortInfo{Path: "/dev/ttyS0", Description: "Standard Serial Port"}, "/dev/ttyS0 (Standard Serial Port)"},
	}
	for _, tt := range tests {
		if got := tt.info.Label(); got != tt.expected {
			t.Errorf("Label() = %q, expected %q", got, tt.expected)
		}
	}
}

func BenchmarkListPorts(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ListPorts(); err != nil {
			b.Errorf("ListPorts failed: %v", err)
		}
	}
}
