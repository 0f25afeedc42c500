// Package document holds the bot configuration document: a JSON-like tree of
// sections persisted through a pluggable Storage.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Top level sections and options of the configuration document
const (
	SectionExchanges = "exchanges"
	SectionTrader    = "trader"
	SectionSimulator = "trader-simulator"
	OptionEnabled    = "enabled"
)

// DefaultIOTimeout bounds Save and Read when called without a context
const DefaultIOTimeout = 10 * time.Second

var (
	// ErrNotFound is returned by storages when no document is stored yet
	ErrNotFound = errors.New("configuration document not found")

	// ErrLoadFailed is returned when neither the document nor its defaults could be read
	ErrLoadFailed = errors.New("failed to load configuration document")

	// ErrSaveFailed is returned when the document could not be persisted
	ErrSaveFailed = errors.New("failed to save configuration document")

	// ErrInvalidDocument is returned when stored bytes are not a JSON object
	ErrInvalidDocument = errors.New("invalid configuration document")
)

// Storage persists the raw JSON form of a document
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, data []byte) error
	Name() string
}

// Document is a loaded configuration. It is not safe for concurrent use.
type Document struct {
	config   map[string]interface{}
	storage  Storage
	defaults Storage
	logger   zerolog.Logger
}

// Option configures a Document
type Option func(*Document)

// WithDefaults sets the storage holding the shipped default document, used to
// fill missing fields and as a fallback when the document cannot be read.
func WithDefaults(defaults Storage) Option {
	return func(d *Document) {
		d.defaults = defaults
	}
}

// WithLogger sets the logger used for non fatal read issues
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Document) {
		d.logger = logger
	}
}

// New creates an empty document bound to storage. Call Read to load it.
func New(storage Storage, opts ...Option) *Document {
	d := &Document{
		config:  make(map[string]interface{}),
		storage: storage,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("component", "Document").Str("storage", d.Name()).Logger()
	return d
}

// FromMap creates a document around an existing mapping without copying it
func FromMap(config map[string]interface{}, storage Storage, opts ...Option) *Document {
	d := New(storage, opts...)
	if config != nil {
		d.config = config
	}
	return d
}

// Load creates a document and reads it, failing if it cannot be read
func Load(ctx context.Context, storage Storage, opts ...Option) (*Document, error) {
	d := New(storage, opts...)
	if err := d.ReadContext(ctx, true, true); err != nil {
		return nil, err
	}
	return d, nil
}

// Config returns the live configuration mapping
func (d *Document) Config() map[string]interface{} {
	return d.config
}

// Name identifies the storage backing this document
func (d *Document) Name() string {
	if d.storage == nil {
		return "memory"
	}
	return d.storage.Name()
}

// Section returns a top level section when it exists and is a mapping
func (d *Document) Section(name string) (map[string]interface{}, bool) {
	section, ok := d.config[name].(map[string]interface{})
	return section, ok
}

// EnsureSection returns the named section, creating or replacing it with an
// empty mapping when it is absent or not a mapping.
func (d *Document) EnsureSection(name string) map[string]interface{} {
	if section, ok := d.Section(name); ok {
		return section
	}
	section := make(map[string]interface{})
	d.config[name] = section
	return section
}

// Clone deep copies the configuration; the copy shares storages.
func (d *Document) Clone() (interface{}, error) {
	config, err := CloneMap(d.config)
	if err != nil {
		return nil, err
	}
	return &Document{
		config:   config,
		storage:  d.storage,
		defaults: d.defaults,
		logger:   d.logger,
	}, nil
}

// MarshalJSON encodes the configuration mapping
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.config)
}

// Save persists the document
func (d *Document) Save() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultIOTimeout)
	defer cancel()
	return d.SaveContext(ctx)
}

// SaveContext persists the document
func (d *Document) SaveContext(ctx context.Context) error {
	if d.storage == nil {
		return fmt.Errorf("%w: no storage configured", ErrSaveFailed)
	}
	data, err := json.MarshalIndent(d.config, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := d.storage.Store(ctx, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, d.storage.Name(), err)
	}
	d.logger.Debug().Msg("configuration saved")
	return nil
}

// Read reloads the document from its storage
func (d *Document) Read(shouldRaise, fillMissingFields bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultIOTimeout)
	defer cancel()
	return d.ReadContext(ctx, shouldRaise, fillMissingFields)
}

// ReadContext reloads the document from its storage. When shouldRaise is
// false a read failure falls back to the default document; an error is then
// only returned if the defaults cannot be read either, in which case the
// in-memory configuration is left untouched. fillMissingFields merges keys
// missing from the document in from the defaults.
func (d *Document) ReadContext(ctx context.Context, shouldRaise, fillMissingFields bool) error {
	cfg, err := decode(ctx, d.storage)
	if err != nil {
		if shouldRaise {
			return fmt.Errorf("%w: %s: %v", ErrLoadFailed, d.Name(), err)
		}
		d.logger.Error().Err(err).Msg("failed to read configuration, using default configuration")
		if d.defaults == nil {
			return fmt.Errorf("%w: %s: %v", ErrLoadFailed, d.Name(), err)
		}
		cfg, err = decode(ctx, d.defaults)
		if err != nil {
			return fmt.Errorf("%w: defaults %s: %v", ErrLoadFailed, d.defaults.Name(), err)
		}
	}

	if fillMissingFields && d.defaults != nil {
		defaults, err := decode(ctx, d.defaults)
		if err != nil {
			d.logger.Warn().Err(err).Msg("default configuration unavailable, missing fields not filled")
		} else if changed, err := MergeMissing(cfg, defaults); err != nil {
			d.logger.Warn().Err(err).Msg("missing fields not filled")
		} else if changed {
			d.logger.Info().Msg("missing configuration fields filled from defaults")
		}
	}

	d.config = cfg
	return nil
}

func decode(ctx context.Context, storage Storage) (map[string]interface{}, error) {
	if storage == nil {
		return nil, errors.New("no storage configured")
	}
	data, err := storage.Load(ctx)
	if err != nil {
		return nil, err
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidDocument)
	}
	return cfg, nil
}
