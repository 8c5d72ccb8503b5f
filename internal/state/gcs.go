package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/civicwire/videoscan/internal/scanner"
)

// GCSStoreConfig locates the checkpoint object.
type GCSStoreConfig struct {
	Bucket string
	Object string
}

// GCSStore keeps the checkpoint in a Cloud Storage object, for deployments
// that already carry GCS credentials and have no collaborator state service.
// Semantics match HTTPStore: a missing object is "absent", not an error.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSStore builds a GCSStore from an existing client.
func NewGCSStore(client *storage.Client, cfg GCSStoreConfig) (*GCSStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Object == "" {
		cfg.Object = "scan-state.json"
	}
	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// Load reads the checkpoint object.
func (s *GCSStore) Load(ctx context.Context) (scanner.ScanState, bool, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return scanner.ScanState{}, false, nil
		}
		return scanner.ScanState{}, false, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer reader.Close() //nolint:errcheck

	var state scanner.ScanState
	if err := json.NewDecoder(reader).Decode(&state); err != nil {
		return scanner.ScanState{}, false, nil
	}
	if state.IsZero() {
		return scanner.ScanState{}, false, nil
	}
	return state, true, nil
}

// Save overwrites the checkpoint object.
func (s *GCSStore) Save(ctx context.Context, state scanner.ScanState) error {
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if err := json.NewEncoder(writer).Encode(state); err != nil {
		_ = writer.Close()
		return fmt.Errorf("encode state object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("write state object: %w", err)
	}
	return nil
}
