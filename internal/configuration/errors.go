package configuration

import (
	"errors"

	"tradebot-config/internal/trading"
)

var (
	// ErrKeyNotFound is returned when no configuration element is registered under a key
	ErrKeyNotFound = errors.New("configuration element not found")

	// ErrNoProjection is returned when a dict projection is requested from a
	// value that does not wrap a configuration mapping
	ErrNoProjection = errors.New("configuration element has no dict projection")

	// ErrEncryptionCheckFailed wraps failures of the credential encryption check.
	// They are logged and never abort a health check.
	ErrEncryptionCheckFailed = errors.New("exchange config encryption check failed")

	// ErrMissingConfigSection is the recoverable trading mode misconfiguration
	ErrMissingConfigSection = trading.ErrMissingKey

	// ErrSaveFailed wraps a failed save of the health checked document
	ErrSaveFailed = errors.New("save of the health checked config failed")

	// ErrReloadFailed is returned when the document could not be reloaded after a failed save
	ErrReloadFailed = errors.New("reload of the initial config failed")
)
