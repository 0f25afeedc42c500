// Package trading answers which order execution modes a configuration enables.
package trading

import (
	"errors"
	"fmt"

	"tradebot-config/internal/document"
)

var (
	// ErrMissingKey is returned when the trader or simulator section, or its
	// enabled option, is absent from the configuration
	ErrMissingKey = errors.New("missing configuration key")

	// ErrInvalidValue is returned when a section or option has the wrong type
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Modes queries the trading modes of a configuration mapping
type Modes interface {
	IsTraderEnabled(config map[string]interface{}) (bool, error)
	IsSimulatorEnabled(config map[string]interface{}) (bool, error)
}

// ConfigModes reads the modes straight from the document sections
type ConfigModes struct{}

// IsTraderEnabled reports whether real trading is enabled
func (ConfigModes) IsTraderEnabled(config map[string]interface{}) (bool, error) {
	return IsTraderEnabled(config)
}

// IsSimulatorEnabled reports whether the trader simulator is enabled
func (ConfigModes) IsSimulatorEnabled(config map[string]interface{}) (bool, error) {
	return IsSimulatorEnabled(config)
}

// IsTraderEnabled reports whether real trading is enabled
func IsTraderEnabled(config map[string]interface{}) (bool, error) {
	return enabledOption(config, document.SectionTrader)
}

// IsSimulatorEnabled reports whether the trader simulator is enabled
func IsSimulatorEnabled(config map[string]interface{}) (bool, error) {
	return enabledOption(config, document.SectionSimulator)
}

func enabledOption(config map[string]interface{}, section string) (bool, error) {
	raw, ok := config[section]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingKey, section)
	}
	values, ok := raw.(map[string]interface{})
	if !ok {
		return false, fmt.Errorf("%w: %s is %T, expected a mapping", ErrInvalidValue, section, raw)
	}
	opt, ok := values[document.OptionEnabled]
	if !ok {
		return false, fmt.Errorf("%w: %s.%s", ErrMissingKey, section, document.OptionEnabled)
	}
	enabled, ok := opt.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s.%s is %T, expected a boolean", ErrInvalidValue, section, document.OptionEnabled, opt)
	}
	return enabled, nil
}
