package link

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// DefaultDevDir is where device nodes are looked up.
const DefaultDevDir = "/dev"

// sysfsRoot is overridden in tests.
var sysfsRoot = "/sys"

var (
	serialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters (CP210x, CH340, FTDI)
		regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM, native USB on ESP32-S2/S3
		regexp.MustCompile(`^ttyS\d+$`),
		regexp.MustCompile(`^ttyAMA\d+$`),
		regexp.MustCompile(`^ttymxc\d+$`),
		regexp.MustCompile(`^ttyO\d+$`),
		regexp.MustCompile(`^ttySAC\d+$`),
		regexp.MustCompile(`^ttyTHS\d+$`),
	}

	excludePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^tty\d+$`),
		regexp.MustCompile(`^console$`),
		regexp.MustCompile(`^ptmx$`),
		regexp.MustCompile(`^pty.*$`),
		regexp.MustCompile(`^pts/.*$`),
	}
)

// IsSerialName reports whether a device node name looks like a
// communication-capable serial port.
func IsSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range serialPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// ListPorts returns the serial ports under /dev, sorted.
func ListPorts() ([]string, error) {
	return listPortsIn(DefaultDevDir, isCharacterDevice)
}

func listPortsIn(devDir string, accept func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		if !IsSerialName(entry.Name()) {
			continue
		}
		fullPath := filepath.Join(devDir, entry.Name())
		if accept(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a serial port and, for USB devices, the device behind it.
type PortInfo struct {
	Name            string
	Path            string
	Description     string
	VendorID        string
	ProductID       string
	SerialNumber    string
	Manufacturer    string
	Product         string
	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
}

// IsUSB reports whether USB metadata was found for the port.
func (p PortInfo) IsUSB() bool {
	return p.VendorID != "" || p.BusNumber != ""
}

// Label is a short human-readable name for choosers and logs.
func (p PortInfo) Label() string {
	switch {
	case p.Product != "":
		return p.Path + " (" + p.Product + ")"
	case p.VendorID != "":
		return p.Path + " (" + p.VendorID + ":" + p.ProductID + ")"
	default:
		return p.Path + " (" + p.Description + ")"
	}
}

// SameDevice reports whether p and q describe the same physical device:
// the same node path, or the same USB vendor and serial number. Without a
// serial number on both sides the product ID has to match instead.
func (p PortInfo) SameDevice(q PortInfo) bool {
	if p.Path == q.Path {
		return true
	}
	if p.VendorID == "" || !strings.EqualFold(p.VendorID, q.VendorID) {
		return false
	}
	if p.SerialNumber != "" && q.SerialNumber != "" {
		return p.SerialNumber == q.SerialNumber
	}
	return p.ProductID != "" && strings.EqualFold(p.ProductID, q.ProductID)
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}
	info := describe(portPath)
	return &info, nil
}

// ListPortInfos returns GetPortInfo for every port in ListPorts. Ports the
// sysfs walk could not identify are filled in from the OS enumerator.
func ListPortInfos() ([]PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	infos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		infos = append(infos, describe(p))
	}
	enrichFromEnumerator(infos)
	return infos, nil
}

func describe(portPath string) PortInfo {
	name := filepath.Base(portPath)
	info := PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}
	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(&info)
	}
	return info
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo walks /sys/class/tty/<name>/device up to the USB interface
// and device directories. Missing files leave fields empty.
func enrichUSBInfo(info *PortInfo) {
	devicePath := filepath.Join(sysfsRoot, "class", "tty", info.Name, "device")
	resolved, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return
	}

	// ttyUSB nodes sit one level below the interface, ttyACM nodes are the interface
	interfacePath := resolved
	if strings.HasPrefix(info.Name, "ttyUSB") {
		interfacePath = filepath.Dir(resolved)
	}
	info.InterfaceNumber = readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber"))

	usbDevicePath := filepath.Dir(interfacePath)
	info.VendorID = readSysfsFile(filepath.Join(usbDevicePath, "idVendor"))
	info.ProductID = readSysfsFile(filepath.Join(usbDevicePath, "idProduct"))
	info.SerialNumber = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	info.Manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	info.Product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	info.BusNumber = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	info.DeviceNumber = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))
}

func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// detailedPorts is overridden in tests.
var detailedPorts = enumerator.GetDetailedPortsList

func enrichFromEnumerator(infos []PortInfo) {
	var missing bool
	for _, info := range infos {
		if info.VendorID == "" {
			missing = true
			break
		}
	}
	if !missing {
		return
	}

	details, err := detailedPorts()
	if err != nil {
		return
	}
	byName := make(map[string]*enumerator.PortDetails, len(details))
	for _, d := range details {
		if d.IsUSB {
			byName[d.Name] = d
		}
	}
	for i := range infos {
		d, ok := byName[infos[i].Path]
		if !ok || infos[i].VendorID != "" {
			continue
		}
		infos[i].VendorID = strings.ToLower(d.VID)
		infos[i].ProductID = strings.ToLower(d.PID)
		if infos[i].SerialNumber == "" {
			infos[i].SerialNumber = d.SerialNumber
		}
		if infos[i].Product == "" {
			infos[i].Product = d.Product
		}
	}
}
