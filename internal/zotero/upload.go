package zotero

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// uploadAuthorization is the response to an upload authorization request.
type uploadAuthorization struct {
	Exists      int    `json:"exists"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	UploadKey   string `json:"uploadKey"`
}

// UploadAttachment pushes a local PDF into the library as a new attachment of
// parentKey using the API's own file storage (direct mode, WebDAV disabled).
// The flow is create item, authorize upload, post bytes, register upload.
func (c *Client) UploadAttachment(ctx context.Context, parentKey, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	md5sum := bytesMD5(data)
	mtime := time.Now().Unix()

	tmpl, err := c.ItemTemplate(ctx)
	if err != nil {
		return err
	}
	tmpl = FillTemplate(tmpl, parentKey, localPath, md5sum, mtime)

	key, err := c.CreateAttachmentItem(ctx, tmpl)
	if err != nil {
		return err
	}

	auth, err := c.authorizeUpload(ctx, key, filepath.Base(localPath), md5sum, mtime, int64(len(data)))
	if err != nil {
		return err
	}
	if auth.Exists == 1 {
		return nil
	}

	if err := c.postUploadBody(ctx, auth, data); err != nil {
		return err
	}
	return c.registerUpload(ctx, key, auth.UploadKey)
}

func (c *Client) authorizeUpload(ctx context.Context, attachmentKey, filename, md5sum string, mtime, size int64) (uploadAuthorization, error) {
	form := url.Values{}
	form.Set("md5", md5sum)
	form.Set("filename", filename)
	form.Set("filesize", strconv.FormatInt(size, 10))
	form.Set("mtime", strconv.FormatInt(mtime, 10))

	req, err := c.newRequest(ctx, http.MethodPost, c.libraryPrefix()+"/items/"+attachmentKey+"/file", nil, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return uploadAuthorization{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("If-None-Match", "*")

	var auth uploadAuthorization
	if _, err := c.do(req, &auth); err != nil {
		return uploadAuthorization{}, fmt.Errorf("upload authorization failed for %s: %w", attachmentKey, err)
	}
	return auth, nil
}

func (c *Client) postUploadBody(ctx context.Context, auth uploadAuthorization, data []byte) error {
	body := make([]byte, 0, len(auth.Prefix)+len(data)+len(auth.Suffix))
	body = append(body, auth.Prefix...)
	body = append(body, data...)
	body = append(body, auth.Suffix...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", auth.ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("file upload failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("file upload returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) registerUpload(ctx context.Context, attachmentKey, uploadKey string) error {
	form := url.Values{}
	form.Set("upload", uploadKey)

	req, err := c.newRequest(ctx, http.MethodPost, c.libraryPrefix()+"/items/"+attachmentKey+"/file", nil, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("If-None-Match", "*")

	if _, err := c.do(req, nil); err != nil {
		return fmt.Errorf("upload registration failed for %s: %w", attachmentKey, err)
	}
	return nil
}
