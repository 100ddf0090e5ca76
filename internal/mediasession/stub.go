//go:build !linux

package mediasession

// Bridge is a no-op on platforms without a session bus.
type Bridge struct{}

// New returns a no-op bridge on non-Linux platforms.
func New(_ Controller) (*Bridge, error) {
	return &Bridge{}, nil
}

// Close is a no-op on non-Linux platforms.
func (b *Bridge) Close() error {
	return nil
}
