// Package mediaclient calls the media REST API.
package mediaclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"mediahub/pkg/domain"
)

// DefaultBaseURL is used when no API base URL is configured.
const DefaultBaseURL = "http://localhost:4000"

// Client calls the media API over HTTP. Errors are returned unchanged: no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a media API error response.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ProgressFunc receives the upload progress as an integer percentage.
type ProgressFunc func(percent int)

// File is an optional binary attached to a create or update.
type File struct {
	Name   string
	Reader io.Reader
}

// ImportResult is the server's reply to a bulk import.
type ImportResult struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient constructs a media API client. baseURL excludes the /api prefix.
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/media",
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]domain.MediaItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}
	var items []domain.MediaItem
	if err := c.do(req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Get(ctx context.Context, id string) (domain.MediaItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.itemURL(id), nil)
	if err != nil {
		return domain.MediaItem{}, err
	}
	var item domain.MediaItem
	if err := c.do(req, &item); err != nil {
		return domain.MediaItem{}, err
	}
	return item, nil
}

// Create uploads a new media record, optionally with a file.
func (c *Client) Create(ctx context.Context, item domain.MediaItem, file *File, progress ProgressFunc) (domain.MediaItem, error) {
	return c.sendForm(ctx, http.MethodPost, c.baseURL, itemFields(item), file, progress)
}

// Update sends a partial update, optionally replacing the file.
func (c *Client) Update(ctx context.Context, id string, patch domain.MediaPatch, file *File, progress ProgressFunc) (domain.MediaItem, error) {
	return c.sendForm(ctx, http.MethodPut, c.itemURL(id), patchFields(patch), file, progress)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.itemURL(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ExportVideos downloads the server's video backup.
func (c *Client) ExportVideos(ctx context.Context) ([]domain.MediaItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/export/videos", nil)
	if err != nil {
		return nil, err
	}
	var items []domain.MediaItem
	if err := c.do(req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ImportVideos uploads a backup document for best-effort insertion.
func (c *Client) ImportVideos(ctx context.Context, filename string, r io.Reader) (ImportResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return ImportResult{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return ImportResult{}, err
	}
	if err := writer.Close(); err != nil {
		return ImportResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/import/videos", body)
	if err != nil {
		return ImportResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	var out ImportResult
	if err := c.do(req, &out); err != nil {
		return ImportResult{}, err
	}
	return out, nil
}

func (c *Client) sendForm(ctx context.Context, method, target string, fields url.Values, file *File, progress ProgressFunc) (domain.MediaItem, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, values := range fields {
		for _, v := range values {
			if err := writer.WriteField(key, v); err != nil {
				return domain.MediaItem{}, err
			}
		}
	}
	if file != nil && file.Reader != nil {
		part, err := writer.CreateFormFile("file", file.Name)
		if err != nil {
			return domain.MediaItem{}, err
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return domain.MediaItem{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return domain.MediaItem{}, err
	}

	var reader io.Reader = body
	if progress != nil {
		reader = &progressReader{r: body, total: int64(body.Len()), report: progress, last: -1}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return domain.MediaItem{}, err
	}
	req.ContentLength = int64(body.Len())
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var item domain.MediaItem
	if err := c.do(req, &item); err != nil {
		return domain.MediaItem{}, err
	}
	return item, nil
}

func (c *Client) itemURL(id string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(id))
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Code    string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Code: strings.TrimSpace(errResp.Code)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
