package encryption

import (
	"context"
	"fmt"
	"path"

	"tradebot-config/config"
	"tradebot-config/internal/logging"

	"github.com/hashicorp/vault/api"
)

// KeyProvider supplies the passphrase credentials are encrypted with
type KeyProvider interface {
	Passphrase(ctx context.Context) (string, error)
}

// StaticKeyProvider returns a fixed passphrase, usually read from the environment
type StaticKeyProvider struct {
	Value string
}

func (p StaticKeyProvider) Passphrase(ctx context.Context) (string, error) {
	if p.Value == "" {
		logging.WithComponent("Encryption").Warn("No encryption key configured, using the development default key")
		return DefaultPassphrase, nil
	}
	return p.Value, nil
}

// vaultReader is the subset of *api.Logical used to read secrets
type vaultReader interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
}

// VaultKeyProvider reads the passphrase from a Vault KV v2 secret
type VaultKeyProvider struct {
	reader vaultReader
	path   string
	field  string
}

// NewVaultKeyProvider creates a Vault client for cfg and reads field of the
// secret stored at mount/data/secretPath.
func NewVaultKeyProvider(cfg config.VaultConfig, secretPath, field string) (*VaultKeyProvider, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("vault is not enabled in configuration")
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return newVaultKeyProvider(client.Logical(), path.Join(cfg.MountPath, "data", secretPath), field), nil
}

func newVaultKeyProvider(reader vaultReader, secretPath, field string) *VaultKeyProvider {
	return &VaultKeyProvider{reader: reader, path: secretPath, field: field}
}

func (p *VaultKeyProvider) Passphrase(ctx context.Context) (string, error) {
	secret, err := p.reader.ReadWithContext(ctx, p.path)
	if err != nil {
		return "", fmt.Errorf("failed to read encryption key from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("encryption key not found at %s", p.path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid secret format at %s", p.path)
	}
	value, ok := data[p.field].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("field %q missing from secret %s", p.field, p.path)
	}
	return value, nil
}

// ProviderFromConfig picks the key source configured in cfg.SecurityConfig
func ProviderFromConfig(cfg *config.Config) (KeyProvider, error) {
	switch cfg.SecurityConfig.KeySource {
	case "", "env":
		return StaticKeyProvider{Value: cfg.SecurityConfig.EncryptionKey}, nil
	case "vault":
		return NewVaultKeyProvider(cfg.VaultConfig, cfg.SecurityConfig.VaultKeyPath, cfg.SecurityConfig.VaultKeyField)
	default:
		return nil, fmt.Errorf("unknown encryption key source %q", cfg.SecurityConfig.KeySource)
	}
}

// NewEncryptorFromProvider fetches the passphrase and builds an Encryptor
func NewEncryptorFromProvider(ctx context.Context, provider KeyProvider, logger *logging.Logger) (*Encryptor, error) {
	passphrase, err := provider.Passphrase(ctx)
	if err != nil {
		return nil, err
	}
	return NewEncryptor(passphrase, logger)
}
