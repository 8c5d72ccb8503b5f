package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/scanner"
)

// ErrUnreachable marks a remote store that failed to respond at all, as
// opposed to one that answered "no state". The chain falls back to the local
// file only on this condition.
var ErrUnreachable = errors.New("scan-state endpoint unreachable")

// HTTPStoreConfig configures the remote scan-state endpoint.
type HTTPStoreConfig struct {
	// BaseURL is the collaborator service root; the endpoint is
	// {BaseURL}/scan-state.
	BaseURL string
	Timeout time.Duration
}

// HTTPStore talks to the remote scan-state API. The remote copy survives
// container redeployments, so it is the source of truth even when empty.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPStore builds an HTTPStore.
func NewHTTPStore(cfg HTTPStoreConfig, logger *zap.Logger) (*HTTPStore, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("scan-state base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// Load fetches the checkpoint. A non-200 response or malformed body reads as
// "absent"; only a transport failure is an error (and wraps ErrUnreachable).
func (s *HTTPStore) Load(ctx context.Context) (scanner.ScanState, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/scan-state", nil)
	if err != nil {
		return scanner.ScanState{}, false, fmt.Errorf("build state request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return scanner.ScanState{}, false, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("remote state absent", zap.Int("status", resp.StatusCode))
		return scanner.ScanState{}, false, nil
	}
	var state scanner.ScanState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		s.logger.Warn("remote state body malformed", zap.Error(err))
		return scanner.ScanState{}, false, nil
	}
	if state.IsZero() {
		return scanner.ScanState{}, false, nil
	}
	return state, true, nil
}

type savePayload struct {
	HighestValidID   int64 `json:"highestValidId"`
	HighestScannedID int64 `json:"highestScannedId"`
}

// Save PUTs the checkpoint to the remote endpoint.
func (s *HTTPStore) Save(ctx context.Context, state scanner.ScanState) error {
	body, err := json.Marshal(savePayload{
		HighestValidID:   state.HighestValidID,
		HighestScannedID: state.HighestScannedID,
	})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, s.baseURL+"/scan-state", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build state request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote state save returned %d", resp.StatusCode)
	}
	return nil
}
