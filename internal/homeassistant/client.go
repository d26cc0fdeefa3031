package homeassistant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryWait     = 500 * time.Millisecond
	defaultRetryMaxWait  = 2 * time.Second
	maxErrorBodyInReport = 200
)

// EntityState is one entry of /api/states.
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
}

// Name returns the friendly name, falling back to the entity id.
func (s EntityState) Name() string {
	if name, ok := s.Attributes["friendly_name"].(string); ok && strings.TrimSpace(name) != "" {
		return name
	}
	return s.EntityID
}

// Domain returns the entity id prefix ("light" for "light.lamp").
func (s EntityState) Domain() string {
	domain, _, _ := strings.Cut(s.EntityID, ".")
	return domain
}

// Client is a Home Assistant REST client.
//
// Thread Safety:
//   - Safe for concurrent use.
type Client struct {
	http *resty.Client
}

// NewClient creates a REST client for cfg.URL authenticated with cfg.Token.
func NewClient(cfg config.HomeAssistantConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	h := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetTimeout(timeout).
		SetRetryCount(max(cfg.Retries, 0)).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: h}
}

// CallService invokes domain.service with data.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	path := "/api/services/" + url.PathEscape(domain) + "/" + url.PathEscape(service)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(data).
		Post(path)
	if err != nil {
		return fmt.Errorf("%w: calling %s.%s: %w", ErrRequestFailed, domain, service, err)
	}
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("calling %s.%s: %w", domain, service, err)
	}
	return nil
}

// GetState fetches the current state of entityID.
func (c *Client) GetState(ctx context.Context, entityID string) (EntityState, error) {
	var st EntityState
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&st).
		Get("/api/states/" + url.PathEscape(entityID))
	if err != nil {
		return EntityState{}, fmt.Errorf("%w: reading %s: %w", ErrRequestFailed, entityID, err)
	}
	if err := checkStatus(resp); err != nil {
		return EntityState{}, fmt.Errorf("reading %s: %w", entityID, err)
	}
	return st, nil
}

func checkStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode() == http.StatusNotFound:
		return ErrEntityNotFound
	case resp.IsError():
		body := resp.String()
		if len(body) > maxErrorBodyInReport {
			body = body[:maxErrorBodyInReport]
		}
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode(), body)
	}
	return nil
}
