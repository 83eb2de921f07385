package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"catalogscraper/pkg/models"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier announces finished stages on the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform. Platforms without
// one get a Notifier that does nothing.
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

// NewNotifierWithSender uses sender for every notification
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// StageFinished sends a one-line digest of s. Delivery errors are returned
// for logging; they never affect the run.
func (n *Notifier) StageFinished(s *models.Summary) error {
	if n == nil || n.sender == nil {
		return nil
	}
	title := fmt.Sprintf("catalogscraper: %s finished", s.Stage)
	if s.Failed > 0 {
		title = fmt.Sprintf("catalogscraper: %s finished with failures", s.Stage)
	}
	message := fmt.Sprintf("%d succeeded, %d failed, %d skipped", s.Succeeded, s.Failed, s.Skipped)
	return n.sender.Send(title, message)
}
