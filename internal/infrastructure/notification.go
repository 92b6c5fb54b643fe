package infrastructure

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/tabortao/vfetch/internal/domain"
)

// NotificationService sends desktop notifications for download events
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		return nil
	}

	switch n.config.Method {
	case "osascript":
		return n.run("osascript", "-e",
			fmt.Sprintf(`display notification "%s" with title "%s"`, message, title))
	case "notify-send":
		return n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

func (n *NotificationService) run(name string, args ...string) error {
	if err := exec.Command(name, args...).Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", name),
			zap.Error(err))
		return err
	}
	return nil
}

// NotifyCompleted sends a notification for a finished download.
func (n *NotificationService) NotifyCompleted(url, filePath string, fileSize int64) {
	n.Send("Download Completed",
		fmt.Sprintf("%s (%s)", truncateString(filePath, 40), HumanSize(fileSize)))
}

// NotifyFailed sends a notification for a given-up download.
func (n *NotificationService) NotifyFailed(url string, kind domain.ErrorKind) {
	n.Send("Download Failed",
		fmt.Sprintf("%s (%s)", truncateString(url, 40), kind))
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
