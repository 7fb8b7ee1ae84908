// Package api is the HTTP client for the remote event service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventsync/internal/adapters/wire"
	"eventsync/internal/domain"
)

const (
	defaultHTTPTimeout        = 30 * time.Second
	defaultHTTPConnectTimeout = 5 * time.Second
	defaultHTTPTLSTimeout     = 5 * time.Second

	// cap on error bodies read into TransportError
	maxErrorBody = 4 << 10
)

// DefaultHTTPClient returns an http.Client with connect, TLS and overall timeouts set.
func DefaultHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHTTPConnectTimeout,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHTTPTLSTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHTTPTimeout,
	}
}

// Client implements domain.EventAPI over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient returns a client for the service rooted at baseURL (e.g. http://localhost:5000/api).
func NewClient(baseURL string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

var _ domain.EventAPI = (*Client)(nil)

// List fetches the whole collection. Entries without an id are skipped.
func (c *Client) List(ctx context.Context) ([]*domain.Event, error) {
	const op = "list events"
	body, err := c.do(ctx, op, http.MethodGet, "/events", "", nil, "")
	if err != nil {
		return nil, err
	}
	var dtos []wire.EventDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	events := make([]*domain.Event, 0, len(dtos))
	for i, dto := range dtos {
		e, err := dto.ToDomain()
		if err != nil {
			c.logger.WarnContext(ctx, "skipping event from list", "index", i, "err", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Create posts a new event as multipart form data.
func (c *Client) Create(ctx context.Context, credential string, fields domain.EventFields) (*domain.Event, error) {
	const op = "create event"
	payload, contentType, err := encodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.doEvent(ctx, op, http.MethodPost, "/events", credential, payload, contentType)
}

// Update replaces the editable fields of an event.
func (c *Client) Update(ctx context.Context, credential, id string, fields domain.EventFields) (*domain.Event, error) {
	const op = "update event"
	payload, contentType, err := encodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.doEvent(ctx, op, http.MethodPut, eventPath(id), credential, payload, contentType)
}

// Delete removes an event.
func (c *Client) Delete(ctx context.Context, credential, id string) error {
	_, err := c.do(ctx, "delete event", http.MethodDelete, eventPath(id), credential, nil, "")
	return err
}

// Join adds the caller to the event's attendees.
func (c *Client) Join(ctx context.Context, credential, id string) (*domain.Event, error) {
	return c.doEvent(ctx, "join event", http.MethodPost, eventPath(id)+"/join", credential, nil, "")
}

// Leave removes the caller from the event's attendees.
func (c *Client) Leave(ctx context.Context, credential, id string) (*domain.Event, error) {
	return c.doEvent(ctx, "leave event", http.MethodPost, eventPath(id)+"/leave", credential, nil, "")
}

func eventPath(id string) string {
	return "/events/" + url.PathEscape(id)
}

func (c *Client) doEvent(ctx context.Context, op, method, path, credential string, payload io.Reader, contentType string) (*domain.Event, error) {
	body, err := c.do(ctx, op, method, path, credential, payload, contentType)
	if err != nil {
		return nil, err
	}
	e, err := wire.DecodeEvent(body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return e, nil
}

func (c *Client) do(ctx context.Context, op, method, path, credential string, payload io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(msg, resp.Status))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	return body, nil
}

// errorMessage pulls {"message": "..."} out of an error body when present.
func errorMessage(body []byte, status string) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return status
}

// encodeFields writes fields as multipart/form-data with an optional "image" file part.
func encodeFields(fields domain.EventFields) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, kv := range [][2]string{
		{"title", fields.Title},
		{"description", fields.Description},
		{"date", string(fields.Date)},
		{"category", string(fields.Category)},
	} {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}
	if img := fields.Image; img != nil && img.Content != nil {
		name := img.Filename
		if name == "" {
			name = "image"
		}
		part, err := mw.CreateFormFile("image", name)
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := io.Copy(part, img.Content); err != nil {
			return nil, "", fmt.Errorf("copy image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
