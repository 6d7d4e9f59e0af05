package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dgellow/finfront/internal/log"
)

// ParseConfigValue parses a JSON value that could be a string or {"$env": "VAR"}
func ParseConfigValue(raw json.RawMessage) (*RawConfigValue, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return &RawConfigValue{value: str}, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return nil, fmt.Errorf("unknown reference type in config value")
	}

	value := os.Getenv(envVar)
	if value == "" {
		return nil, fmt.Errorf("environment variable %s not set", envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return &RawConfigValue{value: value}, nil
}

func parseOptionalValue(raw json.RawMessage, field string) (string, error) {
	if raw == nil {
		return "", nil
	}
	parsed, err := ParseConfigValue(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", field, err)
	}
	return parsed.value, nil
}

func parseOptionalDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", field, err)
	}
	return d, nil
}

// UnmarshalJSON implements custom unmarshaling for APIConfig
func (a *APIConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		BaseURL   json.RawMessage `json:"baseURL"`
		Timeout   string          `json:"timeout"`
		Endpoints Endpoints       `json:"endpoints"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	baseURL, err := parseOptionalValue(raw.BaseURL, "baseURL")
	if err != nil {
		return err
	}
	timeout, err := parseOptionalDuration(raw.Timeout, "timeout")
	if err != nil {
		return err
	}

	a.BaseURL = baseURL
	a.Timeout = timeout
	a.Endpoints = raw.Endpoints
	return nil
}

// UnmarshalJSON implements custom unmarshaling for SessionConfig
func (s *SessionConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		SignInPath          string `json:"signInPath"`
		RedirectDelay       string `json:"redirectDelay"`
		RefreshBeforeExpiry string `json:"refreshBeforeExpiry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	delay, err := parseOptionalDuration(raw.RedirectDelay, "redirectDelay")
	if err != nil {
		return err
	}
	early, err := parseOptionalDuration(raw.RefreshBeforeExpiry, "refreshBeforeExpiry")
	if err != nil {
		return err
	}

	s.SignInPath = raw.SignInPath
	s.RedirectDelay = delay
	s.RefreshBeforeExpiry = early
	return nil
}

// UnmarshalJSON implements custom unmarshaling for StorageConfig
func (s *StorageConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind                StorageKind     `json:"kind"`
		Path                json.RawMessage `json:"path"`
		Profile             string          `json:"profile"`
		EncryptionKey       json.RawMessage `json:"encryptionKey"`
		GCPProject          json.RawMessage `json:"gcpProject"`
		FirestoreDatabase   string          `json:"firestoreDatabase"`
		FirestoreCollection string          `json:"firestoreCollection"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Kind = raw.Kind
	s.Profile = raw.Profile
	s.FirestoreDatabase = raw.FirestoreDatabase
	s.FirestoreCollection = raw.FirestoreCollection

	path, err := parseOptionalValue(raw.Path, "path")
	if err != nil {
		return err
	}
	s.Path = path

	project, err := parseOptionalValue(raw.GCPProject, "gcpProject")
	if err != nil {
		return err
	}
	s.GCPProject = project

	if raw.EncryptionKey != nil {
		log.LogTraceWithFields("config", "Resolving storage encryption key", map[string]any{
			"kind": s.Kind,
		})
		key, err := parseOptionalValue(raw.EncryptionKey, "encryptionKey")
		if err != nil {
			return err
		}
		s.EncryptionKey = Secret(key)
	}

	switch s.Kind {
	case "", StorageKindMemory, StorageKindFile, StorageKindFirestore:
	default:
		return fmt.Errorf("unknown storage kind: %s (memory, file or firestore)", s.Kind)
	}

	return nil
}
