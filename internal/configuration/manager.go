// Package configuration keeps startup and edited snapshots of configuration
// elements and health checks configuration documents.
package configuration

import (
	"fmt"
	"sort"

	"tradebot-config/internal/document"

	"github.com/rs/zerolog"
)

// Element holds a registered configuration value and two independent deep
// copies of it taken at registration time.
type Element struct {
	Config        interface{} // live value, not copied
	HasDict       bool
	StartupConfig interface{} // never modified after registration
	EditedConfig  interface{} // modified by the session
}

func newElement(value interface{}, hasDict bool) (*Element, error) {
	startup, err := document.Clone(value)
	if err != nil {
		return nil, err
	}
	edited, err := document.Clone(value)
	if err != nil {
		return nil, err
	}
	return &Element{
		Config:        value,
		HasDict:       hasDict,
		StartupConfig: startup,
		EditedConfig:  edited,
	}, nil
}

// Manager stores configuration elements by key. It is owned by a single
// session and is not safe for concurrent use.
type Manager struct {
	elements map[string]*Element
	logger   zerolog.Logger
}

// NewManager creates an empty Manager
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		elements: make(map[string]*Element),
		logger:   logger.With().Str("component", "ConfigurationManager").Logger(),
	}
}

// Register stores value under key, replacing any previous element. hasDict
// tells getters that value wraps an inner mapping (see document.Projector).
// When value cannot be copied nothing is stored and any previous element
// under key is kept.
func (m *Manager) Register(key string, value interface{}, hasDict bool) error {
	element, err := newElement(value, hasDict)
	if err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}
	if _, exists := m.elements[key]; exists {
		m.logger.Debug().Str("key", key).Msg("replacing registered configuration element")
	}
	m.elements[key] = element
	return nil
}

// GetEdited returns the edited copy registered under key
func (m *Manager) GetEdited(key string, dictOnly bool) (interface{}, error) {
	element, ok := m.elements[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return project(element.EditedConfig, element.HasDict && dictOnly)
}

// GetStartup returns the startup copy registered under key
func (m *Manager) GetStartup(key string, dictOnly bool) (interface{}, error) {
	element, ok := m.elements[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return project(element.StartupConfig, element.HasDict && dictOnly)
}

// Element returns the element registered under key
func (m *Manager) Element(key string) (*Element, bool) {
	element, ok := m.elements[key]
	return element, ok
}

// Keys lists registered keys in order
func (m *Manager) Keys() []string {
	keys := make([]string, 0, len(m.elements))
	for k := range m.elements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func project(value interface{}, dictOnly bool) (interface{}, error) {
	if !dictOnly {
		return value, nil
	}
	p, ok := value.(document.Projector)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoProjection, value)
	}
	return p.Config(), nil
}
