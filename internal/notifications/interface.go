package notifications

// Alert levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notifier defines the interface for notification services
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(level, message string) error
}

// NopNotifier drops every alert
type NopNotifier struct{}

// SendAlert implements Notifier
func (NopNotifier) SendAlert(string, string) error { return nil }
