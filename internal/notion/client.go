// Package notion is a small client for the Notion REST API covering the
// calls needed to upsert rows into a single database: retrieve the
// database, query it by a key property, create pages and update pages.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
)

// ErrTransport marks failures to reach the API at all, as opposed to
// responses the API rejected.
var ErrTransport = errors.New("notion transport error")

// APIError is a non-2xx response from Notion.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion API error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion API error %d (%s): %s", e.Status, e.Code, e.Message)
}

func (e *APIError) IsRateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

type Options struct {
	Token      string
	DatabaseID string
	BaseURL    string
	Version    string
	RateLimit  float64
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to one Notion database.
type Client struct {
	token      string
	databaseID string
	baseURL    string
	version    string
	httpClient *http.Client
	limiter    *Limiter
	logger     *zap.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" || opts.DatabaseID == "" {
		return nil, errors.New("notion token and database id are required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		token:      opts.Token,
		databaseID: opts.DatabaseID,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		version:    opts.Version,
		httpClient: opts.HTTPClient,
		limiter:    NewLimiter(opts.RateLimit),
		logger:     opts.Logger,
	}, nil
}

func (c *Client) DatabaseID() string { return c.databaseID }

// RetrieveDatabase returns the destination schema as property name -> type.
func (c *Client) RetrieveDatabase(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := c.do(ctx, http.MethodGet, "/databases/"+c.databaseID, nil, &resp); err != nil {
		return nil, err
	}
	schema := make(map[string]string, len(resp.Properties))
	for name, prop := range resp.Properties {
		schema[name] = prop.Type
	}
	return schema, nil
}

// FindPageByUID returns the ID of the page whose rich_text property equals
// uid, or "" when none exists.
func (c *Client) FindPageByUID(ctx context.Context, property, uid string) (string, error) {
	body := map[string]any{
		"filter": map[string]any{
			"property": property,
			"rich_text": map[string]any{
				"equals": uid,
			},
		},
		"page_size": 2,
	}
	var resp struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
		HasMore bool `json:"has_more"`
	}
	if err := c.do(ctx, http.MethodPost, "/databases/"+c.databaseID+"/query", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	if len(resp.Results) > 1 || resp.HasMore {
		c.logger.Warn("multiple pages share one uid; updating the first",
			zap.String("uid", uid), zap.String("page_id", resp.Results[0].ID))
	}
	return resp.Results[0].ID, nil
}

// CreatePage adds a row to the database and returns the new page ID.
func (c *Client) CreatePage(ctx context.Context, properties map[string]any) (string, error) {
	body := map[string]any{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": properties,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/pages", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdatePage patches the given properties on an existing page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]any) error {
	body := map[string]any{"properties": properties}
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	c.logger.Debug("notion request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, body []byte) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}
