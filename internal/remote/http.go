package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// HTTPStore talks to a PostgREST-compatible endpoint exposing the
// user_progress table
type HTTPStore struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
}

// HTTPConfig holds connection settings for HTTPStore
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	// Token is the bearer token of the signed-in user. Falls back to APIKey.
	Token   string
	Timeout time.Duration
}

// NewHTTPStore creates a new REST remote store
func NewHTTPStore(cfg HTTPConfig) *HTTPStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	token := cfg.Token
	if token == "" {
		token = cfg.APIKey
	}
	return &HTTPStore{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type progressRow struct {
	UserID       string          `json:"user_id,omitempty"`
	ProgressData json.RawMessage `json:"progress_data"`
	SyncedAt     *time.Time      `json:"synced_at,omitempty"`
}

// GetProgress fetches the stored document for a user
func (s *HTTPStore) GetProgress(ctx context.Context, userID string) (*domain.ProgressSnapshot, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "progress_data")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var rows []progressRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 || len(rows[0].ProgressData) == 0 || string(rows[0].ProgressData) == "null" {
		return nil, ErrNotFound
	}

	snap := &domain.ProgressSnapshot{}
	if err := json.Unmarshal(rows[0].ProgressData, snap); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// PutProgress upserts the document for a user
func (s *HTTPStore) PutProgress(ctx context.Context, userID string, snapshot *domain.ProgressSnapshot, syncedAt time.Time) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	at := syncedAt.UTC()
	body, err := json.Marshal(progressRow{UserID: userID, ProgressData: data, SyncedAt: &at})
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tableURL()+"?on_conflict=user_id", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put progress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

func (s *HTTPStore) tableURL() string {
	return s.baseURL + "/rest/v1/" + Table
}

func (s *HTTPStore) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
