//go:build !linux

package device

import "context"

// stubProber is used on platforms without a capture backend.
type stubProber struct{}

func newPlatformProber() Prober {
	return stubProber{}
}

func (stubProber) Resolve(_ context.Context, _ Constraints) (Resolved, error) {
	return Resolved{}, newError(ErrCodeNoBackend, "no capture backend on this platform", nil)
}

// List returns no devices on platforms without a capture backend.
func List() []Info {
	return nil
}
