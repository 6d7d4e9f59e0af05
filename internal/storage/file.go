package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dgellow/finfront/internal/crypto"
	"github.com/dgellow/finfront/internal/log"
)

var _ Storage = (*FileStorage)(nil)
var _ ProfileLister = (*FileStorage)(nil)

// FileStorage persists credentials in a JSON document on local disk, one
// entry per profile. Tokens are encrypted when an encryptor is configured.
type FileStorage struct {
	mu        sync.Mutex
	path      string
	profile   string
	encryptor crypto.Encryptor
}

type fileDocument struct {
	Profiles map[string]*profileRecord `json:"profiles"`
}

type profileRecord struct {
	Credentials *Credentials      `json:"credentials,omitempty"`
	Encrypted   bool              `json:"encrypted,omitempty"`
	Flags       map[string]string `json:"flags,omitempty"`
}

// NewFileStorage creates a file-backed store. encryptor may be nil.
func NewFileStorage(path, profile string, encryptor crypto.Encryptor) (*FileStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if profile == "" {
		return nil, fmt.Errorf("profile is required")
	}
	return &FileStorage{
		path:      path,
		profile:   profile,
		encryptor: encryptor,
	}, nil
}

// load reads the document; a missing file is an empty document
func (s *FileStorage) load() (*fileDocument, error) {
	doc := &fileDocument{Profiles: make(map[string]*profileRecord)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if doc.Profiles == nil {
		doc.Profiles = make(map[string]*profileRecord)
	}
	return doc, nil
}

// save writes the document atomically
func (s *FileStorage) save(doc *fileDocument) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting credentials file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing credentials file: %w", err)
	}
	return nil
}

// update runs fn on the current profile record and saves the result
func (s *FileStorage) update(fn func(rec *profileRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	rec, ok := doc.Profiles[s.profile]
	if !ok {
		rec = &profileRecord{}
		doc.Profiles[s.profile] = rec
	}
	if err := fn(rec); err != nil {
		return err
	}
	if rec.Credentials == nil && len(rec.Flags) == 0 {
		delete(doc.Profiles, s.profile)
	}
	return s.save(doc)
}

// GetCredentials returns the profile's token pair
func (s *FileStorage) GetCredentials(_ context.Context) (*Credentials, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rec, ok := doc.Profiles[s.profile]
	if !ok || rec.Credentials == nil || rec.Credentials.AccessToken == "" {
		return nil, ErrCredentialsNotFound
	}

	creds := copyCredentials(rec.Credentials)
	if rec.Encrypted {
		if s.encryptor == nil {
			return nil, fmt.Errorf("credentials are encrypted but no encryption key is configured")
		}
		if creds.AccessToken, err = s.encryptor.Decrypt(creds.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		if creds.RefreshToken != "" {
			if creds.RefreshToken, err = s.encryptor.Decrypt(creds.RefreshToken); err != nil {
				return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
			}
		}
	}
	return creds, nil
}

// SetCredentials replaces the profile's token pair
func (s *FileStorage) SetCredentials(_ context.Context, creds *Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials cannot be nil")
	}

	stored := copyCredentials(creds)
	stored.UpdatedAt = time.Now()
	encrypted := false
	if s.encryptor != nil {
		var err error
		if stored.AccessToken, err = s.encryptor.Encrypt(stored.AccessToken); err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		if stored.RefreshToken != "" {
			if stored.RefreshToken, err = s.encryptor.Encrypt(stored.RefreshToken); err != nil {
				return fmt.Errorf("failed to encrypt refresh token: %w", err)
			}
		}
		encrypted = true
	}

	err := s.update(func(rec *profileRecord) error {
		rec.Credentials = stored
		rec.Encrypted = encrypted
		return nil
	})
	if err != nil {
		return err
	}

	log.LogTraceWithFields("storage", "Credentials written", map[string]any{
		"path":      s.path,
		"profile":   s.profile,
		"encrypted": encrypted,
	})
	return nil
}

// DeleteCredentials removes the profile's token pair
func (s *FileStorage) DeleteCredentials(_ context.Context) error {
	return s.update(func(rec *profileRecord) error {
		rec.Credentials = nil
		rec.Encrypted = false
		return nil
	})
}

// GetFlags returns the profile's session flags
func (s *FileStorage) GetFlags(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	flags := make(map[string]string)
	if rec, ok := doc.Profiles[s.profile]; ok {
		maps.Copy(flags, rec.Flags)
	}
	return flags, nil
}

// SetFlag stores one session flag
func (s *FileStorage) SetFlag(_ context.Context, name, value string) error {
	return s.update(func(rec *profileRecord) error {
		if rec.Flags == nil {
			rec.Flags = make(map[string]string)
		}
		rec.Flags[name] = value
		return nil
	})
}

// DeleteFlags removes the named flags
func (s *FileStorage) DeleteFlags(_ context.Context, names ...string) error {
	return s.update(func(rec *profileRecord) error {
		for _, name := range names {
			delete(rec.Flags, name)
		}
		return nil
	})
}

// ListProfiles returns every profile with stored data, sorted
func (s *FileStorage) ListProfiles(_ context.Context) ([]string, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	profiles := make([]string, 0, len(doc.Profiles))
	for name := range doc.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles, nil
}

// Close is a no-op; every operation writes through
func (s *FileStorage) Close() error {
	return nil
}
