package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"tradebot-config/config"
	"tradebot-config/internal/bootstrap"
	"tradebot-config/internal/configuration"
	"tradebot-config/internal/document"
	"tradebot-config/internal/encryption"
	"tradebot-config/internal/logging"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Container holds what the commands share once the root command has loaded
// the process configuration
type Container struct {
	Config *config.Config
	Logger *logging.Logger
}

// zerologger builds the logger handed to the document and the snapshot store
func (c *Container) zerologger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Config.LoggingConfig.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
}

// ensureUserConfig runs the first-run bootstrap when the file backend has no
// user configuration yet
func (c *Container) ensureUserConfig() error {
	backend := c.Config.StorageConfig.Backend
	if backend != "" && backend != "file" {
		return nil
	}
	opts := bootstrap.OptionsFromConfig(c.Config.PathsConfig)
	if !bootstrap.NeedsInit(opts) {
		return nil
	}
	c.Logger.Info("No user configuration found, creating it from defaults", "path", opts.UserConfigFile)
	return bootstrap.InitConfig(opts, c.Logger)
}

// openSession loads the configuration document and wires the health check
// and snapshot store around it. The returned close function is never nil.
func (c *Container) openSession(ctx context.Context, inBacktesting bool) (*configuration.Session, func(), error) {
	noop := func() {}
	cfg := c.Config

	if err := c.ensureUserConfig(); err != nil {
		return nil, noop, err
	}

	storage, closeStorage, err := document.OpenStorage(ctx, cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("opening %s storage: %w", cfg.StorageConfig.Backend, err)
	}
	logging.StorageContext(c.Logger, cfg.StorageConfig.Backend, storage.Name()).Info("Loading configuration document")

	zl := c.zerologger()
	doc := document.New(storage,
		document.WithDefaults(document.NewFileStorage(cfg.PathsConfig.DefaultConfigFile)),
		document.WithLogger(zl),
	)
	if err := doc.ReadContext(ctx, false, true); err != nil {
		closeStorage()
		return nil, noop, err
	}

	provider, err := encryption.ProviderFromConfig(cfg)
	if err != nil {
		closeStorage()
		return nil, noop, err
	}
	encryptor, err := encryption.NewEncryptorFromProvider(ctx, provider, c.Logger)
	if err != nil {
		closeStorage()
		return nil, noop, fmt.Errorf("loading encryption key: %w", err)
	}

	checker := configuration.NewHealthChecker(logging.ConfigurationContext(c.Logger, storage.Name()), encryptor, nil)
	session := configuration.NewSession(doc, checker, configuration.NewManager(zl), inBacktesting)
	return session, closeStorage, nil
}

// printValue writes v as indented JSON or as YAML
func printValue(w io.Writer, format string, v interface{}) error {
	switch format {
	case "", "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
