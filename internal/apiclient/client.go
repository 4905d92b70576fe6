// Package apiclient talks to the annotation REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"video-annotator/internal/annotation"
)

// APIError is a non-2xx response. Message comes from the {"message"} body
// when one can be parsed, otherwise from the status text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// VideoConfig is the body of GET /video/config.
type VideoConfig struct {
	Src     string `json:"src"`
	Title   string `json:"title,omitempty"`
	VideoID string `json:"videoId,omitempty"`
}

// Client is a client for the annotation API.
type Client struct {
	BaseURL string
	client  *http.Client
}

// NewClient creates a new API client. baseURL includes the /api prefix.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
}

// WithHTTPClient swaps the underlying transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// List fetches every annotation, optionally scoped to one video.
func (c *Client) List(ctx context.Context, video string) ([]annotation.Annotation, error) {
	path := "/annotations"
	if video != "" {
		path += "?video=" + url.QueryEscape(video)
	}
	var out []annotation.Annotation
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []annotation.Annotation{}
	}
	return out, nil
}

// createBody is the POST payload; the server assigns the id.
type createBody struct {
	annotation.Annotation
	ID string `json:"id,omitempty"`
}

// Create persists a and returns the stored record with its server id.
func (c *Client) Create(ctx context.Context, a annotation.Annotation) (annotation.Annotation, error) {
	var out annotation.Annotation
	if err := c.do(ctx, http.MethodPost, "/annotations", createBody{Annotation: a}, &out); err != nil {
		return annotation.Annotation{}, err
	}
	return out, nil
}

// Update sends patch for id and returns the updated record.
func (c *Client) Update(ctx context.Context, id string, patch annotation.Patch) (annotation.Annotation, error) {
	var out annotation.Annotation
	if err := c.do(ctx, http.MethodPut, "/annotations/"+url.PathEscape(id), patch, &out); err != nil {
		return annotation.Annotation{}, err
	}
	return out, nil
}

// Delete removes id. Any 2xx, including 204, is success.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/annotations/"+url.PathEscape(id), nil, nil)
}

// VideoConfig fetches the video source configuration.
func (c *Client) VideoConfig(ctx context.Context) (VideoConfig, error) {
	var out VideoConfig
	if err := c.do(ctx, http.MethodGet, "/video/config", nil, &out); err != nil {
		return VideoConfig{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		apiErr.Message = body.Message
	}
	return apiErr
}
