package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

// Notifier delivers announcement notifications to a destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, a *market.Announcement) error
}

// Manager broadcasts announcements to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a notification manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends an announcement to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, a *market.Announcement) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
