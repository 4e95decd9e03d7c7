package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier announces finished batches
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform; unsupported
// platforms get a Notifier that does nothing
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: &LinuxNotificationSender{}}
	case "darwin":
		return &Notifier{sender: &MacOSNotificationSender{}}
	default:
		return &Notifier{}
	}
}

// NewNotifierWithSender is used by tests
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// BatchDone reports a successful batch
func (n *Notifier) BatchDone(platform string, peers, messages int) {
	n.send("chatdump", fmt.Sprintf("%s: dumped %d messages from %d peers", platform, messages, peers))
}

// BatchFailed reports an aborted batch
func (n *Notifier) BatchFailed(platform string, err error) {
	n.send("chatdump failed", fmt.Sprintf("%s: %v", platform, err))
}

func (n *Notifier) send(title, message string) {
	if n == nil || n.sender == nil {
		return
	}
	// notifications are best effort
	_ = n.sender.Send(title, message)
}
