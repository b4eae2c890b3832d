package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"careercoach/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// Secret paths
	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault. Every path points at a
// KVv2 secret; the expected keys are listed per field.
type VaultSecrets struct {
	// APIKeys expects "keys" holding comma-separated values, e.g. "key1,key2"
	APIKeys   string `mapstructure:"apiKeys"`
	GeminiKey string `mapstructure:"geminiKey"` // "api_key"
	TLSCerts  string `mapstructure:"tlsCerts"`  // "cert", "key", "ca"
	Storage   string `mapstructure:"storage"`   // "dsn"
	Blob      string `mapstructure:"blob"`      // "access_key_id", "secret_access_key"
	Events    string `mapstructure:"events"`    // "url"
}

// SecretReader is the read side of VaultClient, used by watchers and tests.
type SecretReader interface {
	GetSecretV2(path string) (*VaultSecret, error)
	GetStringSecret(path, key string) (string, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger // Add logger field
}

// NewVaultClient creates a new Vault client from configuration
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled")
		}
		return nil, nil
	}

	if logger != nil {
		logger.Debug("Initializing Vault client",
			"address", config.Address,
			"namespace", config.Namespace,
			"token_file", config.TokenFile,
			"has_token", config.Token != "")
	}

	client, err := createVaultAPIClient(config, logger)
	if err != nil {
		return nil, err
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}

	client.SetToken(token)
	if logger != nil {
		logger.Debug("Vault token configured", "token_prefix", token[:min(len(token), 8)]+"...")
	}

	if err := testVaultConnection(client, config.Address, logger); err != nil {
		return nil, err
	}

	return &VaultClient{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// createVaultAPIClient creates and configures the Vault API client
func createVaultAPIClient(config VaultConfig, logger *errors.Logger) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to create Vault client")
		}
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	// Set namespace if provided
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
		if logger != nil {
			logger.Debug("Set Vault namespace", "namespace", config.Namespace)
		}
	}

	return client, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		if logger != nil {
			logger.Debug("Reading Vault token from file", "file", config.TokenFile)
		}
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			if logger != nil {
				logger.LogError(err, "Failed to read Vault token file", "file", config.TokenFile)
			}
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		if logger != nil {
			logger.LogError(fmt.Errorf("vault token is required"), "Vault token is required when Vault is enabled")
		}
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}

	return token, nil
}

// testVaultConnection tests the connection to Vault
func testVaultConnection(client *api.Client, address string, logger *errors.Logger) error {
	if logger != nil {
		logger.Debug("Testing Vault connection", "address", address)
	}

	health, err := client.Sys().Health()
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to connect to Vault", "address", address)
		}
		return fmt.Errorf("failed to connect to vault: %w", err)
	}

	if logger != nil {
		logger.Info("Successfully connected to Vault",
			"address", address,
			"version", health.Version,
			"sealed", health.Sealed,
			"cluster_name", health.ClusterName)
	}

	return nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	if vc.logger != nil {
		vc.logger.Debug("Reading secret from Vault", "path", path)
	}

	secret, err := vc.readSecretFromVault(path)
	if err != nil {
		return nil, err
	}

	data, err := vc.extractSecretData(secret, path)
	if err != nil {
		return nil, err
	}

	version, err := vc.extractSecretVersion(secret, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{
		Data:    data,
		Version: version,
	}, nil
}

// readSecretFromVault reads the raw secret from Vault
func (vc *VaultClient) readSecretFromVault(path string) (*api.Secret, error) {
	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		if vc.logger != nil {
			vc.logger.LogError(err, "Failed to read secret from Vault", "path", path)
		}
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}

	if secret == nil || secret.Data == nil {
		if vc.logger != nil {
			vc.logger.Warn("Secret not found at path", "path", path)
		}
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	return secret, nil
}

// extractSecretData extracts the data field from a KVv2 secret
func (vc *VaultClient) extractSecretData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

// extractSecretVersion extracts and parses the version from a KVv2 secret
func (vc *VaultClient) extractSecretVersion(secret *api.Secret, path string) (int64, error) {
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}

	versionRaw, ok := metadata["version"]
	if !ok {
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}

	return parseVersionValue(versionRaw, path)
}

// parseVersionValue parses version value from various types
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	if vc.logger != nil {
		vc.logger.Debug("String secret retrieved from Vault",
			"path", path,
			"key", key,
			"masked_value", MaskSecret(strValue))
	}

	return strValue, nil
}

// GetStringSliceSecret retrieves a comma-separated string as a slice from Vault
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return []string{}, nil
	}
	return splitAndTrim(value), nil
}

// MaskSecret keeps the first and last four characters of long values.
func MaskSecret(value string) string {
	if len(value) > 8 {
		return value[:4] + "****" + value[len(value)-4:]
	}
	if len(value) > 0 {
		return "****"
	}
	return ""
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config.
// The returned client is nil when Vault is disabled; callers that poll for
// rotated secrets keep it.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) (*VaultClient, error) {
	if !config.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil, nil
	}

	if logger != nil {
		logger.Info("Loading secrets from Vault",
			"api_keys_path", config.Vault.Secrets.APIKeys,
			"gemini_key_path", config.Vault.Secrets.GeminiKey,
			"tls_certs_path", config.Vault.Secrets.TLSCerts)
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client: %w", err)
	}

	if err := applySecrets(client, config, logger); err != nil {
		return nil, err
	}
	return client, nil
}

// secretBinding maps one key of one Vault secret onto a config field.
type secretBinding struct {
	path   string
	key    string
	target *string
	name   string
}

// applySecrets loads all configured secrets through reader
func applySecrets(reader SecretReader, config *Config, logger *errors.Logger) error {
	secrets := config.Vault.Secrets

	if secrets.APIKeys != "" {
		apiKeys, err := reader.GetStringSliceSecret(secrets.APIKeys, "keys")
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if len(apiKeys) > 0 {
			config.Server.APIKeys = apiKeys
			if logger != nil {
				logger.Info("API keys loaded from Vault", "count", len(apiKeys))
			}
		} else if logger != nil {
			logger.Warn("No API keys found in Vault", "path", secrets.APIKeys)
		}
	}

	if secrets.GeminiKey != "" {
		geminiKey, err := reader.GetStringSecret(secrets.GeminiKey, "api_key")
		if err != nil {
			return fmt.Errorf("failed to load Gemini API key from vault: %w", err)
		}
		if geminiKey != "" {
			applyGeminiKeyToConfig(config, geminiKey)
			if logger != nil {
				logger.Info("Gemini API key loaded from Vault and applied to all AI operations")
			}
		}
	}

	if secrets.TLSCerts != "" {
		tlsData, err := reader.GetSecretV2(secrets.TLSCerts)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		certCount := loadTLSCertificateContent(config, tlsData, logger)
		if logger != nil {
			logger.Info("TLS certificates loaded from Vault", "certificates_loaded", certCount)
		}
	}

	bindings := []secretBinding{
		{secrets.Storage, "dsn", &config.Storage.DSN, "storage DSN"},
		{secrets.Blob, "access_key_id", &config.Blob.AccessKeyID, "blob access key id"},
		{secrets.Blob, "secret_access_key", &config.Blob.SecretAccessKey, "blob secret access key"},
		{secrets.Events, "url", &config.Events.URL, "events broker URL"},
	}
	for _, b := range bindings {
		if b.path == "" {
			continue
		}
		value, err := reader.GetStringSecret(b.path, b.key)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		*b.target = value
		if logger != nil {
			logger.Debug(b.name+" loaded from Vault", "path", b.path)
		}
	}

	if logger != nil {
		logger.Info("Successfully completed applying secrets from Vault")
	}
	return nil
}

// applyGeminiKeyToConfig applies the Gemini API key to all AI configurations
// that do not carry their own key
func applyGeminiKeyToConfig(config *Config, geminiKey string) {
	config.AI.APIKey = geminiKey
	for _, op := range Operations {
		if field := config.operationField(op); field.APIKey == "" {
			field.APIKey = geminiKey
		}
	}
}

// loadTLSCertificateContent loads certificate content from Vault data
func loadTLSCertificateContent(config *Config, tlsData *VaultSecret, logger *errors.Logger) int {
	certCount := 0

	certCount += loadSingleCertificate(tlsData, "cert", &config.Server.TLS.CertContent, "TLS certificate content", logger)
	certCount += loadSingleCertificate(tlsData, "key", &config.Server.TLS.KeyContent, "TLS private key content", logger)
	certCount += loadSingleCertificate(tlsData, "ca", &config.Server.TLS.CAContent, "TLS CA certificate content", logger)

	return certCount
}

// loadSingleCertificate loads a single certificate field from Vault data
func loadSingleCertificate(tlsData *VaultSecret, key string, target *string, description string, logger *errors.Logger) int {
	if content, ok := tlsData.Data[key].(string); ok && content != "" {
		*target = content
		if logger != nil {
			logger.Debug(description+" loaded from Vault", "content_length", len(content))
		}
		return 1
	}
	return 0
}
