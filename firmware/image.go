package firmware

import (
	"errors"
	"fmt"
	"os"
)

// DefaultLoadAddress is where application images start on ESP32 parts using
// the default partition table.
const DefaultLoadAddress uint32 = 0x10000

// ErrEmptyImage is returned for zero-length firmware files.
var ErrEmptyImage = errors.New("firmware image is empty")

// Image is a firmware blob and the flash offset it is written to.
type Image struct {
	Name    string
	Address uint32
	Data    []byte
}

// Segment is one address/data pair handed to bulk writers.
type Segment struct {
	Address uint32
	Data    []byte
}

// LoadImage reads a raw application binary for DefaultLoadAddress.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read firmware: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%s: %w", path, ErrEmptyImage)
	}
	return Image{Name: path, Address: DefaultLoadAddress, Data: data}, nil
}

func (img Image) String() string {
	return fmt.Sprintf("%d bytes @ 0x%x", len(img.Data), img.Address)
}
