package input

import "context"

// PlatformEnumerator enumerates devices through the OS raw input API.
type PlatformEnumerator struct{}

// StaticEnumerator returns a fixed device list. It stands in for the OS
// query in tests and on hosts without raw input support.
type StaticEnumerator struct {
	Devices []PhysicalDevice
	Err     error
}

// Enumerate returns the configured devices or error.
func (s StaticEnumerator) Enumerate(ctx context.Context) ([]PhysicalDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]PhysicalDevice, len(s.Devices))
	copy(out, s.Devices)
	return out, nil
}
