package notification

import (
	"errors"

	"todolite/internal/utils"
)

type manager struct {
	enabled  bool
	channels []NotificationChannel
}

// NewManager builds the channels the configuration asks for. Without
// permission the manager has no channels and Send does nothing. An OS
// channel whose notifier program is missing is left out.
func NewManager(cfg *Config, opts ...Option) (NotificationManager, error) {
	m := &manager{enabled: cfg.Enabled}
	if !cfg.Enabled {
		return m, nil
	}

	if cfg.OSNotification.Enabled {
		ch := newOSChannel(&cfg.OSNotification, newSettings(opts))
		if ch.available() {
			m.channels = append(m.channels, ch)
		} else {
			utils.Debugf("no desktop notifier on %s, skipping OS channel", ch.platform)
		}
	}
	if cfg.LogNotification.Enabled && cfg.LogNotification.Path != "" {
		m.channels = append(m.channels, NewLogNotificationChannel(&cfg.LogNotification))
	}
	return m, nil
}

// Send delivers n to every channel. A failing channel does not stop the
// others; all failures are returned together.
func (m *manager) Send(n Notification) error {
	if !m.enabled {
		return nil
	}
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Send(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *manager) Close() error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *manager) ChannelCount() int {
	return len(m.channels)
}
