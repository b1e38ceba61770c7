//go:build !linux && !darwin

package alerts

// NewPlatformNotifier returns a no-op notifier on platforms without a
// supported notification command.
func NewPlatformNotifier(enabled bool) Notifier {
	return NopNotifier{}
}
