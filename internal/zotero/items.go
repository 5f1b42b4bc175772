package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tbergmann/zot2rm/internal/entities"
)

// itemJSON is the wire shape of a Zotero item.
type itemJSON struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Data    struct {
		ItemType    string `json:"itemType"`
		Title       string `json:"title"`
		ParentItem  string `json:"parentItem"`
		ContentType string `json:"contentType"`
		Filename    string `json:"filename"`
		MD5         string `json:"md5"`
		MTime       *int64 `json:"mtime"`
		Tags        []struct {
			Tag string `json:"tag"`
		} `json:"tags"`
	} `json:"data"`
}

func (j itemJSON) toItem() entities.LibraryItem {
	item := entities.LibraryItem{
		Key:     j.Key,
		Version: j.Version,
		Title:   j.Data.Title,
	}
	for _, t := range j.Data.Tags {
		item.Tags = append(item.Tags, t.Tag)
	}
	return item
}

func (j itemJSON) toAttachment() entities.Attachment {
	a := entities.Attachment{
		Key:         j.Key,
		ParentKey:   j.Data.ParentItem,
		ContentType: j.Data.ContentType,
		Filename:    j.Data.Filename,
		MD5:         j.Data.MD5,
	}
	if j.Data.MTime != nil {
		a.MTime = *j.Data.MTime
	}
	return a
}

// ItemsByTag returns top-level items carrying all of the given tags. A tag
// prefixed with "-" excludes items carrying it, per the Zotero search syntax.
func (c *Client) ItemsByTag(ctx context.Context, tags ...string) ([]entities.LibraryItem, error) {
	q := url.Values{}
	for _, t := range tags {
		q.Add("tag", t)
	}
	q.Set("format", "json")

	req, err := c.newRequest(ctx, http.MethodGet, c.libraryPrefix()+"/items/top", q, nil)
	if err != nil {
		return nil, err
	}
	var raw []itemJSON
	if _, err := c.do(req, &raw); err != nil {
		return nil, fmt.Errorf("failed to list items by tag %v: %w", tags, err)
	}

	items := make([]entities.LibraryItem, 0, len(raw))
	for _, j := range raw {
		items = append(items, j.toItem())
	}
	return items, nil
}

// Children returns the attachments of an item.
func (c *Client) Children(ctx context.Context, itemKey string) ([]entities.Attachment, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.libraryPrefix()+"/items/"+itemKey+"/children", nil, nil)
	if err != nil {
		return nil, err
	}
	var raw []itemJSON
	if _, err := c.do(req, &raw); err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", itemKey, err)
	}

	var attachments []entities.Attachment
	for _, j := range raw {
		if j.Data.ItemType == "attachment" {
			attachments = append(attachments, j.toAttachment())
		}
	}
	return attachments, nil
}

// DownloadAttachment fetches an attachment's bytes into destDir under the
// given filename and returns the local path.
func (c *Client) DownloadAttachment(ctx context.Context, attachmentKey, destDir, filename string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.libraryPrefix()+"/items/"+attachmentKey+"/file", nil, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment %s: %w", attachmentKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("attachment download returned status %d: %s", resp.StatusCode, string(body))
	}

	dest := filepath.Join(destDir, filename)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

// ReplaceTag atomically swaps oldTag for newTag on the item with a single
// conditional PATCH. The item's tag set is the durable sync state, so the
// write is guarded by the item version to avoid clobbering concurrent edits.
func (c *Client) ReplaceTag(ctx context.Context, item *entities.LibraryItem, oldTag, newTag string) error {
	var tags []map[string]string
	for _, t := range item.Tags {
		if t == oldTag || t == newTag {
			continue
		}
		tags = append(tags, map[string]string{"tag": t})
	}
	tags = append(tags, map[string]string{"tag": newTag})

	if err := c.patchTags(ctx, item, tags); err != nil {
		return err
	}

	kept := item.Tags[:0]
	for _, t := range item.Tags {
		if t != oldTag && t != newTag {
			kept = append(kept, t)
		}
	}
	item.Tags = append(kept, newTag)
	return nil
}

func (c *Client) patchTags(ctx context.Context, item *entities.LibraryItem, tags []map[string]string) error {
	if tags == nil {
		tags = []map[string]string{}
	}
	payload, err := json.Marshal(map[string]any{"tags": tags})
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, c.libraryPrefix()+"/items/"+item.Key, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Unmodified-Since-Version", strconv.Itoa(item.Version))

	if _, err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to update tags on %s: %w", item.Key, err)
	}
	item.Version = c.lastVersion
	return nil
}

// DeleteTagEverywhere removes the tag from every item in the library. Used as
// the push phase boundary to clear leftover to_sync tags.
func (c *Client) DeleteTagEverywhere(ctx context.Context, tag string) error {
	// A read refreshes the library version the conditional delete must carry.
	if _, err := c.ItemsByTag(ctx, tag); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("tag", tag)
	req, err := c.newRequest(ctx, http.MethodDelete, c.libraryPrefix()+"/tags", q, nil)
	if err != nil {
		return err
	}
	req.Header.Set("If-Unmodified-Since-Version", strconv.Itoa(c.lastVersion))

	if _, err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to delete tag %q: %w", tag, err)
	}
	return nil
}

// AttachmentTemplate is the item-creation payload for an imported-file
// attachment registered alongside a WebDAV upload.
type AttachmentTemplate struct {
	ItemType    string              `json:"itemType"`
	LinkMode    string              `json:"linkMode"`
	Title       string              `json:"title"`
	ParentItem  string              `json:"parentItem,omitempty"`
	ContentType string              `json:"contentType"`
	Filename    string              `json:"filename"`
	MD5         string              `json:"md5"`
	MTime       int64               `json:"mtime"`
	Tags        []map[string]string `json:"tags"`
}

// ItemTemplate fetches the attachment item template from the API.
func (c *Client) ItemTemplate(ctx context.Context) (AttachmentTemplate, error) {
	q := url.Values{}
	q.Set("itemType", "attachment")
	q.Set("linkMode", "imported_file")

	req, err := c.newRequest(ctx, http.MethodGet, "/items/new", q, nil)
	if err != nil {
		return AttachmentTemplate{}, err
	}
	var tmpl AttachmentTemplate
	if _, err := c.do(req, &tmpl); err != nil {
		return AttachmentTemplate{}, fmt.Errorf("failed to fetch item template: %w", err)
	}
	if tmpl.Tags == nil {
		tmpl.Tags = []map[string]string{}
	}
	return tmpl, nil
}

// FillTemplate populates the template for a local PDF file.
func FillTemplate(tmpl AttachmentTemplate, parentKey, localPath, md5sum string, mtime int64) AttachmentTemplate {
	name := filepath.Base(localPath)
	tmpl.ParentItem = parentKey
	tmpl.Title = strings.TrimSuffix(name, filepath.Ext(name))
	tmpl.Filename = name
	tmpl.ContentType = "application/pdf"
	tmpl.MD5 = md5sum
	tmpl.MTime = mtime
	return tmpl
}

// CreateAttachmentItem registers a new attachment item and returns its key.
func (c *Client) CreateAttachmentItem(ctx context.Context, tmpl AttachmentTemplate) (string, error) {
	payload, err := json.Marshal([]AttachmentTemplate{tmpl})
	if err != nil {
		return "", fmt.Errorf("failed to marshal attachment item: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.libraryPrefix()+"/items", nil, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Success map[string]string `json:"success"`
		Failed  map[string]any    `json:"failed"`
	}
	if _, err := c.do(req, &result); err != nil {
		return "", fmt.Errorf("failed to create attachment item: %w", err)
	}
	key, ok := result.Success["0"]
	if !ok {
		return "", fmt.Errorf("attachment item creation rejected by library: %v", result.Failed)
	}
	return key, nil
}
