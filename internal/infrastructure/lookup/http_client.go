package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxSummaryBody = 1 << 20

// HTTPClient fetches summaries with GET {base}/{kind}s/{id}/summary.
type HTTPClient struct {
	hc      *http.Client
	log     *logrus.Logger
	baseURL map[Kind]string
	timeout time.Duration
}

// NewHTTPClient builds a client; baseURLs maps each kind to its service root.
// Every call is bounded by timeout, and hitting it is reported as unavailable.
func NewHTTPClient(baseURLs map[Kind]string, timeout time.Duration, log *logrus.Logger) *HTTPClient {
	urls := make(map[Kind]string, len(baseURLs))
	for kind, u := range baseURLs {
		urls[kind] = strings.TrimRight(u, "/")
	}
	return &HTTPClient{
		hc:      &http.Client{},
		log:     log,
		baseURL: urls,
		timeout: timeout,
	}
}

func (c *HTTPClient) Fetch(ctx context.Context, kind Kind, id uuid.UUID, authToken string) (*Summary, error) {
	base, ok := c.baseURL[kind]
	if !ok || base == "" {
		return nil, fmt.Errorf("%w: no profile service configured for %s", ErrEntityUnavailable, kind)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/%ss/%s/summary", base, kind, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrEntityUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warnf("Profile lookup %s %s failed: %+v", kind, id, err)
		return nil, fmt.Errorf("%w: %v", ErrEntityUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSummaryBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrEntityUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrEntityNotFound
	case resp.StatusCode != http.StatusOK:
		c.log.Warnf("Profile lookup %s %s returned status %d", kind, id, resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrEntityUnavailable, resp.StatusCode)
	}

	var summary Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("%w: decode summary: %v", ErrEntityUnavailable, err)
	}
	if !summary.Exists {
		return nil, ErrEntityNotFound
	}
	if summary.ID == uuid.Nil {
		summary.ID = id
	}
	summary.Kind = kind

	return &summary, nil
}
