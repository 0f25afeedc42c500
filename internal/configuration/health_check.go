package configuration

import (
	"errors"
	"fmt"
	"sort"

	"tradebot-config/internal/document"
	"tradebot-config/internal/encryption"
	"tradebot-config/internal/trading"
)

// Logger is what the health check needs to report problems
type Logger interface {
	Error(msg string, args ...interface{})
	Exception(err error, publish bool, msg string)
}

// Encryptor repairs plaintext credentials in place. It returns false when the
// section had to be changed.
type Encryptor interface {
	EnsureEncrypted(valueKey string, section map[string]interface{}, verbose bool) (bool, error)
}

// Document is the configuration being checked
type Document interface {
	Config() map[string]interface{}
	Save() error
	Read(shouldRaise, fillMissingFields bool) error
}

// Report describes what a health check found and changed
type Report struct {
	ShouldReplaceConfig bool     `json:"should_replace_config"`
	EncryptedValues     []string `json:"encrypted_values,omitempty"` // exchange.key repaired in place
	EncryptionFailures  []string `json:"encryption_failures,omitempty"`
	SimulatorDisabled   bool     `json:"simulator_disabled"`
	TradingModesReset   bool     `json:"trading_modes_reset"`
	NoActiveTrader      bool     `json:"no_active_trader"`
	Saved               bool     `json:"saved"`
	Reloaded            bool     `json:"reloaded"`
}

// HealthChecker validates a loaded configuration document and repairs what it can
type HealthChecker struct {
	logger          Logger
	encryptor       Encryptor
	modes           trading.Modes
	encryptedValues []string
}

// NewHealthChecker creates a HealthChecker. A nil modes uses trading.ConfigModes.
func NewHealthChecker(logger Logger, encryptor Encryptor, modes trading.Modes) *HealthChecker {
	if modes == nil {
		modes = trading.ConfigModes{}
	}
	return &HealthChecker{
		logger:          logger,
		encryptor:       encryptor,
		modes:           modes,
		encryptedValues: encryption.ExchangeEncryptedValues,
	}
}

// Run checks doc and returns the document to use from now on: doc itself,
// repaired in place and saved when needed, or doc reloaded from storage when
// saving failed. An error is returned when the trading modes cannot be read
// for a reason other than a missing section, or when the reload failed.
func (h *HealthChecker) Run(doc Document, inBacktesting bool) (Document, error) {
	doc, _, err := h.RunWithReport(doc, inBacktesting)
	return doc, err
}

// RunWithReport is Run returning what was found and changed
func (h *HealthChecker) RunWithReport(doc Document, inBacktesting bool) (Document, *Report, error) {
	report := &Report{}

	// 1 ensure api key encryption
	h.ensureEncryptedCredentials(doc.Config(), report)

	// 2 ensure single trader activated
	if err := h.ensureSingleTrader(doc.Config(), report); err != nil {
		return doc, report, err
	}

	// 3 inform about configuration issues
	if !inBacktesting {
		active, err := h.anyTraderActive(doc.Config())
		if err != nil {
			return doc, report, err
		}
		if !active {
			report.NoActiveTrader = true
			h.logger.Error("Real trader and trader simulator are deactivated in configuration. " +
				"This will prevent the bot from creating any new order.")
		}
	}

	// 4 save fixed config if necessary
	if !report.ShouldReplaceConfig {
		return doc, report, nil
	}
	if err := doc.Save(); err != nil {
		h.logger.Error(fmt.Sprintf("%v: %v, will use the initial config", ErrSaveFailed, err))
		if err := doc.Read(false, true); err != nil {
			return doc, report, fmt.Errorf("%w: %v", ErrReloadFailed, err)
		}
		report.Reloaded = true
		return doc, report, nil
	}
	report.Saved = true
	return doc, report, nil
}

func (h *HealthChecker) ensureEncryptedCredentials(config map[string]interface{}, report *Report) {
	raw, ok := config[document.SectionExchanges]
	if !ok {
		return
	}
	exchanges, ok := raw.(map[string]interface{})
	if !ok {
		err := fmt.Errorf("%w: %s is %T, expected a mapping", ErrEncryptionCheckFailed, document.SectionExchanges, raw)
		h.logger.Exception(err, true, fmt.Sprintf("Exception when checking exchange config encryption: %v", err))
		report.EncryptionFailures = append(report.EncryptionFailures, document.SectionExchanges)
		return
	}

	names := make([]string, 0, len(exchanges))
	for name := range exchanges {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		exchangeConfig, ok := exchanges[name].(map[string]interface{})
		if !ok {
			err := fmt.Errorf("%w: %s is %T, expected a mapping", ErrEncryptionCheckFailed, name, exchanges[name])
			h.logger.Exception(err, true, fmt.Sprintf("Exception when checking exchange config encryption: %v", err))
			report.EncryptionFailures = append(report.EncryptionFailures, name)
			continue
		}
		for _, key := range h.encryptedValues {
			path := name + "." + key
			encrypted, err := h.checkValue(key, exchangeConfig)
			if err != nil {
				err = fmt.Errorf("%w: %s: %v", ErrEncryptionCheckFailed, path, err)
				h.logger.Exception(err, true, fmt.Sprintf("Exception when checking exchange config encryption: %v", err))
				report.EncryptionFailures = append(report.EncryptionFailures, path)
				continue
			}
			if !encrypted {
				report.ShouldReplaceConfig = true
				report.EncryptedValues = append(report.EncryptedValues, path)
			}
		}
	}
}

// checkValue turns a panicking encryptor into an ordinary failure
func (h *HealthChecker) checkValue(key string, exchangeConfig map[string]interface{}) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = true, fmt.Errorf("panic: %v", r)
		}
	}()
	return h.encryptor.EnsureEncrypted(key, exchangeConfig, true)
}

func (h *HealthChecker) ensureSingleTrader(config map[string]interface{}, report *Report) error {
	traderEnabled, err := h.modes.IsTraderEnabled(config)
	if err == nil && traderEnabled {
		var simulatorEnabled bool
		simulatorEnabled, err = h.modes.IsSimulatorEnabled(config)
		if err == nil && simulatorEnabled {
			h.logger.Error("Impossible to activate a trader simulator additionally to a real trader, simulator deactivated.")
			setEnabled(config, document.SectionSimulator, false)
			report.SimulatorDisabled = true
			report.ShouldReplaceConfig = true
		}
	}
	if err == nil {
		return nil
	}

	if !errors.Is(err, ErrMissingConfigSection) {
		return fmt.Errorf("checking traders activation: %w", err)
	}
	h.logger.Exception(err, true, fmt.Sprintf("Missing key when checking traders activation: %v. Activating trader simulator.", err))
	setEnabled(config, document.SectionSimulator, true)
	setEnabled(config, document.SectionTrader, false)
	report.TradingModesReset = true
	report.ShouldReplaceConfig = true
	return nil
}

func (h *HealthChecker) anyTraderActive(config map[string]interface{}) (bool, error) {
	traderEnabled, err := h.modes.IsTraderEnabled(config)
	if err != nil {
		return false, fmt.Errorf("checking traders activation: %w", err)
	}
	if traderEnabled {
		return true, nil
	}
	simulatorEnabled, err := h.modes.IsSimulatorEnabled(config)
	if err != nil {
		return false, fmt.Errorf("checking traders activation: %w", err)
	}
	return simulatorEnabled, nil
}

func setEnabled(config map[string]interface{}, section string, enabled bool) {
	values, ok := config[section].(map[string]interface{})
	if !ok {
		values = make(map[string]interface{})
		config[section] = values
	}
	values[document.OptionEnabled] = enabled
}
