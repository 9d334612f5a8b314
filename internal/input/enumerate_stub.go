//go:build !windows

package input

import "context"

// Enumerate is not supported on this platform.
func (PlatformEnumerator) Enumerate(ctx context.Context) ([]PhysicalDevice, error) {
	return nil, ErrUnsupportedPlatform
}
