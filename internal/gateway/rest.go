package gateway

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

	"github.com/pissten/SMARTi-EMS/internal/models"
)

// DefaultTimeout bounds every REST request.
const DefaultTimeout = 30 * time.Second

// RESTClient calls the Home Assistant REST API.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewRESTClient builds a client for baseURL (e.g. http://supervisor/core).
// The /api suffix is added per request.
func NewRESTClient(baseURL, token string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RESTClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

var _ Gateway = (*RESTClient)(nil)

func (c *RESTClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *RESTClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach Home Assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("home assistant %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse received data: %w", err)
	}
	return nil
}

// State fetches /api/states/<entity_id>.
func (c *RESTClient) State(ctx context.Context, entityID string) (*models.EntityState, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/states/"+url.PathEscape(entityID), nil)
	if err != nil {
		return nil, err
	}
	var st models.EntityState
	if err := c.do(req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// States fetches /api/states.
func (c *RESTClient) States(ctx context.Context) ([]models.EntityState, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/states", nil)
	if err != nil {
		return nil, err
	}
	var out []models.EntityState
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CallService posts data to /api/services/<domain>/<service>.
func (c *RESTClient) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	path := "/services/" + url.PathEscape(domain) + "/" + url.PathEscape(service)
	req, err := c.newRequest(ctx, http.MethodPost, path, data)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
