package config

import (
	"encoding/json"
	"time"
)

// ConfigVersion is the only config version this build understands
const ConfigVersion = "v1"

// Defaults applied by Load when the config leaves a field empty
const (
	DefaultTimeout       = 30 * time.Second
	DefaultSignInPath    = "/sign-in"
	DefaultRedirectDelay = 1500 * time.Millisecond
	DefaultLocale        = "en"

	DefaultSignInEndpoint      = "/auth/sign-in"
	DefaultVerifyTokenEndpoint = "/auth/verify-token"
	DefaultSignOutEndpoint     = "/auth/sign-out"

	DefaultFirestoreDatabase   = "(default)"
	DefaultFirestoreCollection = "finfront_sessions"
	DefaultProfile             = "default"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects where credentials and session flags are persisted
type StorageKind string

const (
	StorageKindMemory    StorageKind = "memory"
	StorageKindFile      StorageKind = "file"
	StorageKindFirestore StorageKind = "firestore"
)

// Endpoints are the backend paths the client treats specially
type Endpoints struct {
	SignIn      string `json:"signIn"`
	VerifyToken string `json:"verifyToken"`
	SignOut     string `json:"signOut"`
}

// APIConfig describes the backend the client talks to
type APIConfig struct {
	BaseURL   string        `json:"baseURL"`
	Timeout   time.Duration `json:"timeout"`
	Endpoints Endpoints     `json:"endpoints"`
}

// SessionConfig controls what happens around authentication failures
type SessionConfig struct {
	SignInPath    string        `json:"signInPath"`
	RedirectDelay time.Duration `json:"redirectDelay"`

	// RefreshBeforeExpiry enables proactive refresh when the stored access
	// token expires within this window. Zero disables it.
	RefreshBeforeExpiry time.Duration `json:"refreshBeforeExpiry"`
}

// StorageConfig describes the credential store
type StorageConfig struct {
	Kind                StorageKind `json:"kind"`
	Path                string      `json:"path,omitempty"`
	Profile             string      `json:"profile,omitempty"`
	EncryptionKey       Secret      `json:"encryptionKey,omitempty"`
	GCPProject          string      `json:"gcpProject,omitempty"`
	FirestoreDatabase   string      `json:"firestoreDatabase,omitempty"`
	FirestoreCollection string      `json:"firestoreCollection,omitempty"`
}

// UIConfig holds presentation settings that still matter for the API, such
// as the locale sent in Accept-Language
type UIConfig struct {
	Locale string `json:"locale"`
	Color  bool   `json:"color"`
}

// LoggingConfig overrides LOG_LEVEL / LOG_FORMAT
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

// Config represents the config structure with resolved values
type Config struct {
	API     APIConfig     `json:"api"`
	Session SessionConfig `json:"session"`
	Storage StorageConfig `json:"storage"`
	UI      UIConfig      `json:"ui"`
	Logging LoggingConfig `json:"logging"`
}

// RawConfigValue represents a value that could be a plain string or an env ref.
// This is only used during parsing, not in the final config
type RawConfigValue struct {
	value string
}

// Value returns the resolved value
func (r *RawConfigValue) Value() string {
	return r.value
}
