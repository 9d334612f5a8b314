package input

import "errors"

var (
	// ErrUnsupportedPlatform is returned when raw input capture or device
	// enumeration is not available on this OS
	ErrUnsupportedPlatform = errors.New("input: unsupported platform")
)
