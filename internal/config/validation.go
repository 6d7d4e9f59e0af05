package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

var bashStyleRegex = regexp.MustCompile(`\$\{?[A-Z_][A-Z0-9_]*\}?`)

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ValidateBytes(data), nil
}

// ValidateBytes is ValidateFile on already-read content
func ValidateBytes(data []byte) *ValidationResult {
	result := &ValidationResult{}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
		})
		return result
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("version field is required. Hint: Add \"version\": %q", ConfigVersion),
		})
	} else if !strings.HasPrefix(version, ConfigVersion) {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("unsupported version '%s' - use '%s'", version, ConfigVersion),
		})
	}

	validateAPIStructure(rawConfig, result)
	validateSessionStructure(rawConfig, result)
	validateStorageStructure(rawConfig, result)

	return result
}

// validateAPIStructure checks the api section
func validateAPIStructure(rawConfig map[string]any, result *ValidationResult) {
	api, ok := rawConfig["api"].(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "api",
			Message: "api field is required and must be an object",
		})
		return
	}

	if _, ok := api["baseURL"]; !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "api.baseURL",
			Message: "baseURL is required. Example: \"https://api.example.com\"",
		})
	}

	validateDurationField(api, "timeout", "api.timeout", result)

	if endpoints, ok := api["endpoints"].(map[string]any); ok {
		for name, value := range endpoints {
			s, isString := value.(string)
			if !isString {
				result.Errors = append(result.Errors, ValidationError{
					Path:    "api.endpoints." + name,
					Message: "endpoint must be a string path",
				})
				continue
			}
			if !strings.HasPrefix(s, "/") {
				result.Errors = append(result.Errors, ValidationError{
					Path:    "api.endpoints." + name,
					Message: fmt.Sprintf("endpoint '%s' must start with /", s),
				})
			}
		}
	}
}

// validateSessionStructure checks the session section
func validateSessionStructure(rawConfig map[string]any, result *ValidationResult) {
	session, ok := rawConfig["session"].(map[string]any)
	if !ok {
		return
	}

	validateDurationField(session, "redirectDelay", "session.redirectDelay", result)
	validateDurationField(session, "refreshBeforeExpiry", "session.refreshBeforeExpiry", result)

	if raw, ok := session["redirectDelay"].(string); ok {
		if d, err := time.ParseDuration(raw); err == nil && d > 10*time.Second {
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    "session.redirectDelay",
				Message: fmt.Sprintf("redirectDelay of %s keeps an expired session on screen for a long time", d),
			})
		}
	}
}

// validateStorageStructure checks the storage section
func validateStorageStructure(rawConfig map[string]any, result *ValidationResult) {
	storage, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		return
	}

	kind, _ := storage["kind"].(string)
	switch StorageKind(kind) {
	case "", StorageKindMemory, StorageKindFile:
	case StorageKindFirestore:
		if _, ok := storage["gcpProject"]; !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "storage.gcpProject",
				Message: "gcpProject is required for firestore storage",
			})
		}
		if _, ok := storage["encryptionKey"]; !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "storage.encryptionKey",
				Message: "encryptionKey is required for firestore storage. Hint: {\"$env\": \"FINFRONT_ENCRYPTION_KEY\"}",
			})
		}
	default:
		result.Errors = append(result.Errors, ValidationError{
			Path:    "storage.kind",
			Message: fmt.Sprintf("unknown storage kind '%s'. Options: memory, file, firestore", kind),
		})
	}

	if key, ok := storage["encryptionKey"]; ok {
		if err := validateEnvVarReference(key, "encryptionKey", "storage.encryptionKey"); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	}

	if StorageKind(kind) == StorageKindMemory {
		result.Warnings = append(result.Warnings, ValidationError{
			Path:    "storage.kind",
			Message: "memory storage forgets the session when the process exits",
		})
	}
}

func validateDurationField(section map[string]any, key, path string, result *ValidationResult) {
	value, ok := section[key]
	if !ok {
		return
	}
	s, isString := value.(string)
	if !isString {
		result.Errors = append(result.Errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must be a duration string like \"30s\"", key),
		})
		return
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("invalid duration '%s'", s),
		})
		return
	}
	if d < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s cannot be negative", key),
		})
	}
}

// validateEnvVarReference validates that a field uses proper env var reference format
func validateEnvVarReference(value any, fieldName, path string) *ValidationError {
	switch v := value.(type) {
	case string:
		if matches := bashStyleRegex.FindString(v); matches != "" {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", v, strings.Trim(matches, "${}")),
			}
		}
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must use environment variable reference {\"$env\": \"YOUR_ENV_VAR\"} instead of plain text", fieldName),
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; !hasEnv {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("%s must use {\"$env\": \"YOUR_ENV_VAR\"} format, not %v", fieldName, v),
			}
		}
		return nil
	default:
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must be an environment variable reference {\"$env\": \"YOUR_ENV_VAR\"}, not %T", fieldName, value),
		}
	}
}

// checkBashStyleSyntax warns about $VAR strings that will not be expanded
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName),
			})
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
