//go:build darwin

package alerts

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// OSAScriptNotifier sends macOS system notifications via osascript.
// Notifications are sent in a non-blocking goroutine so a slow notification
// centre never stalls a poll.
type OSAScriptNotifier struct {
	// enabled controls whether notifications are actually sent.
	// When false, Notify is a no-op.
	enabled bool
}

// NewOSAScriptNotifier creates a new macOS notification sender.
// If enabled is false, notifications are silently dropped.
func NewOSAScriptNotifier(enabled bool) *OSAScriptNotifier {
	return &OSAScriptNotifier{enabled: enabled}
}

// NewPlatformNotifier creates the platform-appropriate notifier for macOS.
func NewPlatformNotifier(enabled bool) Notifier {
	return NewOSAScriptNotifier(enabled)
}

// Notify sends a macOS notification for the given toast.
// The call returns immediately; errors are logged.
func (n *OSAScriptNotifier) Notify(t Toast) {
	if !n.enabled {
		return
	}

	title := notificationTitle(t)
	subtitle := notificationSubtitle(t)
	message := t.Message

	go func() {
		if err := sendOSANotification(title, subtitle, message); err != nil {
			log.Printf("WARNING: failed to send macOS notification: %v", err)
		}
	}()
}

func sendOSANotification(title, subtitle, message string) error {
	script := appleScriptFor(title, subtitle, message)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// appleScriptFor builds the display notification script with every string
// escaped.
func appleScriptFor(title, subtitle, message string) string {
	title = escapeAppleScript(title)
	subtitle = escapeAppleScript(subtitle)
	message = escapeAppleScript(message)

	if subtitle == "" {
		return fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	}
	return fmt.Sprintf(
		`display notification "%s" with title "%s" subtitle "%s"`,
		message, title, subtitle,
	)
}

// escapeAppleScript escapes characters that could break AppleScript strings.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
