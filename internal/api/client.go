package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Bytekeeper/xdccmon/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "xdccmon/1.0"
)

// Client implements domain.TransferRepository and domain.CatalogRepository
// against the download daemon's HTTP interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new daemon API client
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// doRequest performs an HTTP request against the daemon and returns the
// response body. A connection-level failure is mapped to ErrDaemonOffline.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("daemon request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("daemon request failed", "method", method, "url", reqURL, "error", err)
		return nil, domain.ErrDaemonOffline
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrTransferNotFound
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("daemon request error", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return respBody, nil
}

// ListTransfers returns the daemon's full current transfer set
func (c *Client) ListTransfers(ctx context.Context) ([]domain.TransferRecord, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/downloads", nil, nil)
	if err != nil {
		return nil, err
	}

	var records []domain.TransferRecord
	if err := json.Unmarshal(body, &records); err != nil {
		c.logger.Error("transfer list parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse transfer list: %w", err)
	}

	return records, nil
}

// Search issues a catalog query and returns the candidate sources
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	body, err := c.doRequest(ctx, http.MethodGet, "/search", params, nil)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		c.logger.Error("search response parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	return results, nil
}

// StartTransfer asks the daemon to request a new transfer. The response
// body is an acknowledgement only and is not consumed.
func (c *Client) StartTransfer(ctx context.Context, req domain.TransferRequest) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/download", nil, req)
	return err
}

// AbortTransfer removes an in-flight transfer by id
func (c *Client) AbortTransfer(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/download/"+strconv.FormatInt(id, 10), nil, nil)
	return err
}
