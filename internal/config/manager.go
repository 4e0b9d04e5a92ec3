package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Listener is notified with the new settings after a successful reload.
type Listener func(*Settings)

// Manager owns the current settings snapshot. Reload re-reads the config
// source, validates it and notifies subscribers in registration order.
type Manager struct {
	v        *viper.Viper
	validate *validator.Validate
	logger   *zap.Logger

	mu        sync.RWMutex
	current   *Settings
	listeners []Listener
}

// NewManager registers defaults on v and returns a manager around it.
func NewManager(v *viper.Viper, logger *zap.Logger) *Manager {
	if v == nil {
		v = viper.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	SetDefaults(v)
	return &Manager{v: v, validate: validator.New(), logger: logger}
}

// Load decodes and validates the settings currently held by viper.
func (m *Manager) Load() (*Settings, error) {
	settings, err := m.decode()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.current = settings
	m.mu.Unlock()

	return settings, nil
}

// Current returns the last loaded settings.
func (m *Manager) Current() *Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers l for future reloads.
func (m *Manager) Subscribe(l Listener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Reload re-reads the config file when one is in use and notifies listeners.
// On error the previous settings stay in effect.
func (m *Manager) Reload() error {
	if m.v.ConfigFileUsed() != "" {
		if err := m.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	settings, err := m.decode()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.current = settings
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Info("configuration reloaded",
		zap.String("file", m.v.ConfigFileUsed()),
		zap.Int("listeners", len(listeners)),
	)

	for _, l := range listeners {
		l(settings)
	}
	return nil
}

func (m *Manager) decode() (*Settings, error) {
	var settings Settings
	if err := m.v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := m.validate.Struct(&settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid config: %s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &settings, nil
}
