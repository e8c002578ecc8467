// Package notify owns the modal notification: one message at a time,
// replaced by every Show and hidden only by an explicit dismissal.
//
// Shown messages can also be mirrored to the desktop through
// github.com/gen2brain/beeep.
package notify

import (
	"sync"
	"unicode/utf8"

	"github.com/gen2brain/beeep"

	"github.com/jmmpc/lisfy/internal/events"
	"github.com/jmmpc/lisfy/internal/logging"
)

// DesktopTitle is the title of mirrored desktop notifications.
const DesktopTitle = "lisfy"

// Desktop delivers a notification outside the terminal.
type Desktop interface {
	Notify(title, message string) error
}

type beeepDesktop struct{}

// Notify is cross-platform: toast on Windows, Notification Center on
// macOS, D-Bus on Linux.
func (beeepDesktop) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Config holds notification configuration.
type Config struct {
	// DesktopEnabled mirrors every shown message to the desktop.
	DesktopEnabled bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{DesktopEnabled: false}
}

// Notifier is the modal.
type Notifier struct {
	mu      sync.RWMutex
	text    string
	visible bool

	desktopEnabled bool
	desktop        Desktop
	eventBus       *events.EventBus
	logger         *logging.Logger
}

// NewNotifier creates a hidden modal.
func NewNotifier(cfg *Config, eventBus *events.EventBus, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{
		desktopEnabled: cfg.DesktopEnabled,
		desktop:        beeepDesktop{},
		eventBus:       eventBus,
		logger:         logger,
	}
}

// SetDesktop replaces the desktop sink.
func (n *Notifier) SetDesktop(d Desktop) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.desktop = d
}

// SetDesktopEnabled toggles desktop mirroring.
func (n *Notifier) SetDesktopEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.desktopEnabled = enabled
}

// Show sets the modal text and makes it visible. A later Show replaces
// the current text whether or not it was dismissed.
func (n *Notifier) Show(text string) {
	n.mu.Lock()
	n.text = text
	n.visible = true
	desktop := n.desktop
	mirror := n.desktopEnabled && desktop != nil
	n.mu.Unlock()

	n.logger.Debug().Str("text", text).Msg("notification shown")
	n.eventBus.PublishNotification(text, true, events.DismissNone)

	if mirror {
		if err := desktop.Notify(DesktopTitle, truncate(text, 200)); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to send desktop notification")
		}
	}
}

// Dismiss hides the modal. It reports false when nothing was visible.
func (n *Notifier) Dismiss(reason events.DismissReason) bool {
	n.mu.Lock()
	if !n.visible {
		n.mu.Unlock()
		return false
	}
	n.visible = false
	text := n.text
	n.mu.Unlock()

	n.eventBus.PublishNotification(text, false, reason)
	return true
}

// Current returns the modal text and whether it is visible.
func (n *Notifier) Current() (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.text, n.visible
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
