package storage

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/dgellow/finfront/internal/crypto"
	"github.com/dgellow/finfront/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStorage keeps one document per profile in a Firestore collection.
// Tokens are always encrypted at rest.
type FirestoreStorage struct {
	client     *firestore.Client
	projectID  string
	collection string
	profile    string
	encryptor  crypto.Encryptor
}

var _ Storage = (*FirestoreStorage)(nil)
var _ ProfileLister = (*FirestoreStorage)(nil)

// ProfileDoc is the Firestore representation of a profile
type ProfileDoc struct {
	AccessToken  string            `firestore:"access_token,omitempty"`  // Encrypted
	RefreshToken string            `firestore:"refresh_token,omitempty"` // Encrypted
	TokenType    string            `firestore:"token_type,omitempty"`
	ExpiresAt    time.Time         `firestore:"expires_at,omitempty"`
	UpdatedAt    time.Time         `firestore:"updated_at,omitempty"`
	Flags        map[string]string `firestore:"flags,omitempty"`
}

var credentialFields = []string{"access_token", "refresh_token", "token_type", "expires_at"}

// NewFirestoreStorage creates a new Firestore storage instance
func NewFirestoreStorage(ctx context.Context, projectID, database, collection, profile string, encryptor crypto.Encryptor) (*FirestoreStorage, error) {
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if profile == "" {
		return nil, fmt.Errorf("profile is required")
	}

	var client *firestore.Client
	var err error
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Using Firestore credential store", map[string]any{
		"project":    projectID,
		"database":   database,
		"collection": collection,
		"profile":    profile,
	})

	return &FirestoreStorage{
		client:     client,
		projectID:  projectID,
		collection: collection,
		profile:    profile,
		encryptor:  encryptor,
	}, nil
}

func (s *FirestoreStorage) doc() *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(s.profile)
}

func (s *FirestoreStorage) getDoc(ctx context.Context) (*ProfileDoc, error) {
	snap, err := s.doc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile from Firestore: %w", err)
	}

	var pd ProfileDoc
	if err := snap.DataTo(&pd); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &pd, nil
}

// GetCredentials returns the decrypted token pair
func (s *FirestoreStorage) GetCredentials(ctx context.Context) (*Credentials, error) {
	pd, err := s.getDoc(ctx)
	if err != nil {
		return nil, err
	}
	if pd == nil || pd.AccessToken == "" {
		return nil, ErrCredentialsNotFound
	}

	access, err := s.encryptor.Decrypt(pd.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	var refresh string
	if pd.RefreshToken != "" {
		if refresh, err = s.encryptor.Decrypt(pd.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
	}

	return &Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    pd.TokenType,
		ExpiresAt:    pd.ExpiresAt,
		UpdatedAt:    pd.UpdatedAt,
	}, nil
}

// SetCredentials encrypts and stores the token pair, keeping flags intact
func (s *FirestoreStorage) SetCredentials(ctx context.Context, creds *Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials cannot be nil")
	}

	access, err := s.encryptor.Encrypt(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	data := map[string]any{
		"access_token":  access,
		"refresh_token": firestore.Delete,
		"token_type":    creds.TokenType,
		"expires_at":    creds.ExpiresAt,
		"updated_at":    time.Now(),
	}
	if creds.RefreshToken != "" {
		refresh, err := s.encryptor.Encrypt(creds.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		data["refresh_token"] = refresh
	}

	if _, err := s.doc().Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// DeleteCredentials removes the token fields; a missing document is fine
func (s *FirestoreStorage) DeleteCredentials(ctx context.Context) error {
	updates := make([]firestore.Update, 0, len(credentialFields)+1)
	for _, field := range credentialFields {
		updates = append(updates, firestore.Update{Path: field, Value: firestore.Delete})
	}
	updates = append(updates, firestore.Update{Path: "updated_at", Value: time.Now()})

	_, err := s.doc().Update(ctx, updates)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// GetFlags returns the profile's session flags
func (s *FirestoreStorage) GetFlags(ctx context.Context) (map[string]string, error) {
	pd, err := s.getDoc(ctx)
	if err != nil {
		return nil, err
	}
	flags := make(map[string]string)
	if pd != nil {
		maps.Copy(flags, pd.Flags)
	}
	return flags, nil
}

// SetFlag stores one session flag
func (s *FirestoreStorage) SetFlag(ctx context.Context, name, value string) error {
	data := map[string]any{
		"flags":      map[string]any{name: value},
		"updated_at": time.Now(),
	}
	if _, err := s.doc().Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to store flag %s: %w", name, err)
	}
	return nil
}

// DeleteFlags removes the named flags. Flag names contain dots, so
// field paths are built segment by segment.
func (s *FirestoreStorage) DeleteFlags(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(names))
	for _, name := range names {
		updates = append(updates, firestore.Update{
			FieldPath: firestore.FieldPath{"flags", name},
			Value:     firestore.Delete,
		})
	}

	_, err := s.doc().Update(ctx, updates)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete flags: %w", err)
	}
	return nil
}

// ListProfiles returns the IDs of every profile document
func (s *FirestoreStorage) ListProfiles(ctx context.Context) ([]string, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var profiles []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate profiles: %w", err)
		}
		profiles = append(profiles, snap.Ref.ID)
	}
	sort.Strings(profiles)
	return profiles, nil
}

// Close closes the Firestore client
func (s *FirestoreStorage) Close() error {
	return s.client.Close()
}
