package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgellow/finfront/internal/envutil"
	"github.com/dgellow/finfront/internal/log"
)

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse processes config bytes the same way Load does
func Parse(data []byte) (Config, error) {
	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, ConfigVersion) {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig checks secrets are env references before they are resolved
func validateRawConfig(rawConfig map[string]any) error {
	storage, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		return nil
	}
	value, exists := storage["encryptionKey"]
	if !exists {
		return nil
	}
	if _, isString := value.(string); isString {
		return fmt.Errorf("encryptionKey must use environment variable reference for security")
	}
	if refMap, isMap := value.(map[string]any); isMap {
		if _, hasEnv := refMap["$env"]; !hasEnv {
			return fmt.Errorf("encryptionKey must use {\"$env\": \"VAR_NAME\"} format")
		}
	}
	return nil
}

// ApplyDefaults fills every optional field left empty
func ApplyDefaults(config *Config) {
	if config.API.Timeout == 0 {
		config.API.Timeout = DefaultTimeout
	}
	if config.API.Endpoints.SignIn == "" {
		config.API.Endpoints.SignIn = DefaultSignInEndpoint
	}
	if config.API.Endpoints.VerifyToken == "" {
		config.API.Endpoints.VerifyToken = DefaultVerifyTokenEndpoint
	}
	if config.API.Endpoints.SignOut == "" {
		config.API.Endpoints.SignOut = DefaultSignOutEndpoint
	}
	if config.Session.SignInPath == "" {
		config.Session.SignInPath = DefaultSignInPath
	}
	if config.Session.RedirectDelay == 0 {
		config.Session.RedirectDelay = DefaultRedirectDelay
	}
	if config.Storage.Kind == "" {
		config.Storage.Kind = StorageKindFile
	}
	if config.Storage.Profile == "" {
		config.Storage.Profile = DefaultProfile
	}
	if config.Storage.Kind == StorageKindFile && config.Storage.Path == "" {
		config.Storage.Path = filepath.Join(envutil.ConfigDir(), "credentials.json")
	}
	if config.Storage.Kind == StorageKindFirestore {
		if config.Storage.FirestoreDatabase == "" {
			config.Storage.FirestoreDatabase = DefaultFirestoreDatabase
		}
		if config.Storage.FirestoreCollection == "" {
			config.Storage.FirestoreCollection = DefaultFirestoreCollection
		}
	}
	if config.UI.Locale == "" {
		config.UI.Locale = DefaultLocale
	}
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.API.BaseURL == "" {
		return fmt.Errorf("api.baseURL is required")
	}
	u, err := url.Parse(config.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.baseURL must be an absolute URL, got %q", config.API.BaseURL)
	}
	if u.Scheme == "http" && !envutil.IsDev() && !isLoopback(u.Hostname()) {
		log.LogWarnWithFields("config", "Backend is reached over plain HTTP; tokens travel unencrypted", map[string]any{
			"baseURL": config.API.BaseURL,
		})
	}
	if config.API.Timeout < 0 {
		return fmt.Errorf("api.timeout cannot be negative")
	}

	for name, endpoint := range map[string]string{
		"signIn":      config.API.Endpoints.SignIn,
		"verifyToken": config.API.Endpoints.VerifyToken,
		"signOut":     config.API.Endpoints.SignOut,
	} {
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("api.endpoints.%s must start with /", name)
		}
	}

	if config.Session.RedirectDelay < 0 {
		return fmt.Errorf("session.redirectDelay cannot be negative")
	}
	if config.Session.RefreshBeforeExpiry < 0 {
		return fmt.Errorf("session.refreshBeforeExpiry cannot be negative")
	}

	switch config.Storage.Kind {
	case StorageKindFile:
		if config.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for file storage")
		}
	case StorageKindFirestore:
		if config.Storage.GCPProject == "" {
			return fmt.Errorf("storage.gcpProject is required when using firestore storage")
		}
		if config.Storage.EncryptionKey == "" {
			return fmt.Errorf("storage.encryptionKey is required when using firestore storage")
		}
	}
	if config.Storage.EncryptionKey != "" && len(config.Storage.EncryptionKey) < 16 {
		return fmt.Errorf("storage.encryptionKey must be at least 16 characters (got %d). Generate with: openssl rand -base64 32", len(config.Storage.EncryptionKey))
	}

	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// DefaultPath returns $FINFRONT_CONFIG or the per-user config file
func DefaultPath() string {
	if p := os.Getenv("FINFRONT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(envutil.ConfigDir(), "config.json")
}
