// Package webdav uploads attachment blobs and their companion property
// descriptors to the Zotero-compatible WebDAV store.
package webdav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultTimeout = 300 * time.Second

	uploadAttempts = 3
	uploadDelay    = 5 * time.Second
)

// Client is a minimal WebDAV uploader.
type Client struct {
	httpClient *http.Client
	baseURL    string
	user       string
	password   string
	delay      time.Duration
}

// NewClient creates a client for the given WebDAV endpoint. baseURL points at
// the folder the Zotero client is configured with (usually ending in /zotero).
func NewClient(baseURL, user, password string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     user,
		password: password,
		delay:    uploadDelay,
	}
}

// WithRetryDelay overrides the inter-attempt delay, used by tests.
func (c *Client) WithRetryDelay(d time.Duration) *Client {
	c.delay = d
	return c
}

// Upload puts the local file at remotePath, retrying up to 3 times with a
// fixed delay before reporting failure.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) error {
	var lastErr error
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		lastErr = c.put(ctx, localPath, remotePath)
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay):
		}
	}
	return fmt.Errorf("upload of %s failed after %d attempts: %w", remotePath, uploadAttempts, lastErr)
}

// Download fetches remotePath into localPath.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(remotePath, "/"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webdav GET %s returned status %d", remotePath, resp.StatusCode)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(localPath)
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/"+strings.TrimLeft(remotePath, "/"), f)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = info.Size()
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webdav PUT returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
