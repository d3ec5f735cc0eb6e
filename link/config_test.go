package link

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("Expected baud rate 115200, got %d", config.BaudRate)
	}
	if config.ReadTimeoutTenths != 25 {
		t.Errorf("Expected read timeout 25, got %d", config.ReadTimeoutTenths)
	}
	if !config.Exclusive {
		t.Error("Expected exclusive access by default")
	}
	if config.InitialDTR != nil || config.InitialRTS != nil {
		t.Error("Expected initial signals to be unset")
	}
}

func TestOptions(t *testing.T) {
	config := DefaultConfig()

	opts := []Option{
		WithBaudRate(921600),
		WithReadTimeout(5),
		WithShared(),
		WithInitialSignals(Signals{DTR: true, RTS: false}),
	}
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			t.Fatalf("option failed: %v", err)
		}
	}

	if config.BaudRate != 921600 {
		t.Errorf("Expected baud rate 921600, got %d", config.BaudRate)
	}
	if config.ReadTimeoutTenths != 5 {
		t.Errorf("Expected read timeout 5, got %d", config.ReadTimeoutTenths)
	}
	if config.Exclusive {
		t.Error("Expected shared access")
	}
	if config.InitialDTR == nil || !*config.InitialDTR {
		t.Error("Expected initial DTR high")
	}
	if config.InitialRTS == nil || *config.InitialRTS {
		t.Error("Expected initial RTS low")
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"negative baud", WithBaudRate(-1), ErrInvalidBaudRate},
		{"odd baud", WithBaudRate(12345), ErrInvalidBaudRate},
		{"read timeout too large", WithReadTimeout(256), ErrInvalidConfig},
		{"read timeout negative", WithReadTimeout(-1), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			if err := tt.opt(&config); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClampBaud(t *testing.T) {
	tests := []struct {
		rate    int
		want    int
		clamped bool
	}{
		{115200, 115200, false},
		{460800, 460800, false},
		{0, DefaultBaudRate, true},
		{-9600, DefaultBaudRate, true},
		{12345, DefaultBaudRate, true},
	}

	for _, tt := range tests {
		got, clamped := ClampBaud(tt.rate)
		if got != tt.want || clamped != tt.clamped {
			t.Errorf("ClampBaud(%d) = (%d, %v), expected (%d, %v)", tt.rate, got, clamped, tt.want, tt.clamped)
		}
	}
}
