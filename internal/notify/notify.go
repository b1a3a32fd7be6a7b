package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier sends system notifications.
type Notifier struct {
	Enabled bool
}

// Send sends a system notification.
// On macOS, uses osascript to display notifications.
// On other platforms, this is a no-op.
func (n *Notifier) Send(title, message string) error {
	if !n.Enabled {
		return nil
	}

	if runtime.GOOS != "darwin" {
		// Only macOS supported for now
		return nil
	}

	return sendMacOSNotification(title, message)
}

// sendMacOSNotification uses osascript to display a notification.
func sendMacOSNotification(title, message string) error {
	// Escape quotes in title and message
	title = strings.ReplaceAll(title, `"`, `\"`)
	message = strings.ReplaceAll(message, `"`, `\"`)

	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

// FormatSaveFailed formats an autosave failure notification message.
func FormatSaveFailed(workspaceRoot string, cause error) (title, message string) {
	title = "⚠️ hublocal Save Failed"
	message = fmt.Sprintf("%s: %v", workspaceRoot, cause)
	return title, message
}

// FormatRestoreComplete formats a backup restore notification message.
func FormatRestoreComplete(workspaceRoot string, sections int) (title, message string) {
	title = "✅ hublocal Restore Complete"
	message = fmt.Sprintf("%s: %d sections applied", workspaceRoot, sections)
	return title, message
}
