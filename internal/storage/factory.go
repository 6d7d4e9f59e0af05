package storage

import (
	"context"
	"fmt"

	"github.com/dgellow/finfront/internal/config"
	"github.com/dgellow/finfront/internal/crypto"
	"github.com/dgellow/finfront/internal/log"
)

// New builds the store selected by cfg
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	profile := cfg.Profile
	if profile == "" {
		profile = config.DefaultProfile
	}

	var encryptor crypto.Encryptor
	if cfg.EncryptionKey != "" {
		var err error
		encryptor, err = crypto.NewEncryptorFromSecret(string(cfg.EncryptionKey), profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
	}

	switch cfg.Kind {
	case config.StorageKindMemory:
		log.LogDebug("Using in-memory credential store")
		return NewMemoryStorage(), nil
	case config.StorageKindFile, "":
		if encryptor == nil {
			log.LogWarnWithFields("storage", "Tokens will be stored unencrypted", map[string]any{
				"path": cfg.Path,
			})
		}
		return NewFileStorage(cfg.Path, profile, encryptor)
	case config.StorageKindFirestore:
		if encryptor == nil {
			return nil, fmt.Errorf("encryption key is required for firestore storage")
		}
		collection := cfg.FirestoreCollection
		if collection == "" {
			collection = config.DefaultFirestoreCollection
		}
		return NewFirestoreStorage(ctx, cfg.GCPProject, cfg.FirestoreDatabase, collection, profile, encryptor)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}
