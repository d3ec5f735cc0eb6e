package link

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// USBSettle is how long ResetUSBDevice waits for the device to re-enumerate.
const USBSettle = 2 * time.Second

// ResetUSBDevice performs a USB-level reset of the device behind portPath
// using the usbreset utility from usbutils. It usually needs root.
//
// The device re-enumerates afterwards, so any Handle for portPath is stale.
func ResetUSBDevice(ctx context.Context, portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}
	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}
	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	// usbreset expects zero-padded BBB/DDD
	usbPath := fmt.Sprintf("%03s/%03s", info.BusNumber, info.DeviceNumber)

	cmd := exec.CommandContext(ctx, "usbreset", usbPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	return Sleep(ctx, USBSettle)
}

// ResetUSBDeviceBySerial resets the USB device with the given serial number.
func ResetUSBDeviceBySerial(ctx context.Context, serialNumber string) error {
	infos, err := ListPortInfos()
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(ctx, info.Path)
		}
	}
	return fmt.Errorf("device with serial %s not found", serialNumber)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
