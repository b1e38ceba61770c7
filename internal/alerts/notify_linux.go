//go:build linux

package alerts

import (
	"log"
	"os/exec"
)

// NotifySendNotifier sends Linux desktop notifications via notify-send.
// Notifications are sent in a non-blocking goroutine so a slow notification
// daemon never stalls a poll.
type NotifySendNotifier struct {
	// enabled controls whether notifications are actually sent.
	// When false, Notify is a no-op.
	enabled bool
}

// NewNotifySendNotifier creates a new Linux notification sender.
// If enabled is false, notifications are silently dropped.
func NewNotifySendNotifier(enabled bool) *NotifySendNotifier {
	return &NotifySendNotifier{enabled: enabled}
}

// NewPlatformNotifier creates the platform-appropriate notifier for Linux.
func NewPlatformNotifier(enabled bool) Notifier {
	return NewNotifySendNotifier(enabled)
}

// Notify sends a Linux desktop notification for the given toast.
// The call returns immediately; errors are logged.
func (n *NotifySendNotifier) Notify(t Toast) {
	if !n.enabled {
		return
	}

	title := notificationTitle(t)
	body := t.Message
	if sub := notificationSubtitle(t); sub != "" {
		body = sub + "\n" + t.Message
	}

	urgency := "normal"
	if t.Severity() == SeverityCritical {
		urgency = "critical"
	}

	go func() {
		if err := sendNotifySend(title, body, urgency); err != nil {
			log.Printf("WARNING: failed to send Linux notification: %v", err)
		}
	}()
}

func sendNotifySend(title, body, urgency string) error {
	cmd := exec.Command("notify-send", "--urgency", urgency, "--app-name", notifyAppName, title, body)
	return cmd.Run()
}
