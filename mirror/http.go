package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/intelmarket/core"
)

// HTTPSink posts records as JSON to an external collaborator endpoint, such
// as a remote audit trail. Failures are reported as core.ErrUnavailable so
// the tee's failure policy retries them and the caller degrades to the local
// path.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink builds a sink posting to endpoint. A nil client gets a default
// with a 5 second timeout.
func NewHTTPSink(endpoint string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPSink{endpoint: endpoint, client: client}
}

// Name identifies the sink.
func (s *HTTPSink) Name() string { return "http" }

// Put posts {key, value} as a JSON document.
func (s *HTTPSink) Put(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(map[string]any{"key": key, "value": value})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: endpoint returned %s", core.ErrUnavailable, resp.Status)
	}
	return nil
}
