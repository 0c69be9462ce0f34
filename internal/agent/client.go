package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SergeOin/titan/internal/domain"
)

// Config holds the sidecar client settings.
type Config struct {
	// BaseURL is the extraction sidecar address.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// NavigationTimeout bounds one fetch end to end; the sidecar must not
	// block indefinitely.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 90 * time.Second
	}
}

// Client talks to the extraction sidecar over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a sidecar client.
func NewClient(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.NavigationTimeout},
	}
}

// fetchResponse is the sidecar's response body.
type fetchResponse struct {
	Posts []domain.CandidatePost `json:"posts"`
	// Status is "ok", "restricted" or "captcha".
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Fetch implements Agent. Restriction indicators in the response body are
// mapped to the package sentinels so callers can errors.Is on them.
func (c *Client) Fetch(ctx context.Context, keyword string, limit int) ([]domain.CandidatePost, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/extract?keyword=%s&limit=%s",
		c.cfg.BaseURL, url.QueryEscape(keyword), strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract %q: sidecar returned %d", keyword, resp.StatusCode)
	}

	var body fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}

	switch body.Status {
	case "restricted":
		return nil, fmt.Errorf("%w: %s", ErrRestricted, body.Detail)
	case "captcha":
		return nil, fmt.Errorf("%w: %s", ErrCaptcha, body.Detail)
	}

	return body.Posts, nil
}
