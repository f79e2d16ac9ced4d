// Package drive stores the cloud copy of the recipe collection as a single
// JSON file in a Google Drive folder.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"bear-kitchen/internal/config"
	"bear-kitchen/internal/shared"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	fileMimeType   = "application/json"
)

// Client reads and writes the backup file in Drive.
type Client struct {
	svc      *drive.Service
	folder   string
	fileName string

	mu       sync.Mutex
	folderID string
}

// NewClient creates a Drive client from cfg. A static access token takes
// precedence over a credentials file. Extra options are applied last.
func NewClient(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Client, error) {
	var auth []option.ClientOption
	switch {
	case cfg.DriveAccessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.DriveAccessToken})
		auth = append(auth, option.WithTokenSource(ts))
	case cfg.DriveCredentialsFile != "":
		auth = append(auth, option.WithCredentialsFile(cfg.DriveCredentialsFile), option.WithScopes(drive.DriveFileScope))
	default:
		if len(opts) == 0 {
			return nil, fmt.Errorf("drive credentials not configured: %w", shared.ErrValidation)
		}
	}

	svc, err := drive.NewService(ctx, append(auth, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w: %w", shared.ErrNetwork, err)
	}

	return &Client{svc: svc, folder: cfg.DriveFolder, fileName: cfg.DriveFileName}, nil
}

// Download returns the backup file's contents. found is false when the file
// has not been created yet.
func (c *Client) Download(ctx context.Context) ([]byte, bool, error) {
	folderID, err := c.findOrCreateFolder(ctx)
	if err != nil {
		return nil, false, err
	}
	file, err := c.findFile(ctx, folderID)
	if err != nil || file == nil {
		return nil, false, err
	}

	resp, err := c.svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return nil, false, fmt.Errorf("failed to download %s: %w: %w", c.fileName, shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w: %w", c.fileName, shared.ErrNetwork, err)
	}
	return data, true, nil
}

// Upload writes data to the backup file, creating it on first use.
func (c *Client) Upload(ctx context.Context, data []byte) error {
	folderID, err := c.findOrCreateFolder(ctx)
	if err != nil {
		return err
	}
	file, err := c.findFile(ctx, folderID)
	if err != nil {
		return err
	}

	media := googleapi.ContentType(fileMimeType)
	if file == nil {
		meta := &drive.File{Name: c.fileName, MimeType: fileMimeType, Parents: []string{folderID}}
		_, err = c.svc.Files.Create(meta).Media(bytes.NewReader(data), media).Fields("id").Context(ctx).Do()
	} else {
		meta := &drive.File{Name: c.fileName, MimeType: fileMimeType}
		_, err = c.svc.Files.Update(file.Id, meta).Media(bytes.NewReader(data), media).Fields("id").Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w: %w", c.fileName, shared.ErrNetwork, err)
	}
	return nil
}

func (c *Client) findOrCreateFolder(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.folderID != "" {
		return c.folderID, nil
	}

	q := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", folderMimeType, escape(c.folder))
	list, err := c.svc.Files.List().Q(q).Fields("files(id, name)").Spaces("drive").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to find folder %s: %w: %w", c.folder, shared.ErrNetwork, err)
	}
	if len(list.Files) > 0 {
		c.folderID = list.Files[0].Id
		return c.folderID, nil
	}

	folder, err := c.svc.Files.Create(&drive.File{Name: c.folder, MimeType: folderMimeType}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w: %w", c.folder, shared.ErrNetwork, err)
	}
	c.folderID = folder.Id
	return c.folderID, nil
}

func (c *Client) findFile(ctx context.Context, folderID string) (*drive.File, error) {
	q := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", escape(c.fileName), escape(folderID))
	list, err := c.svc.Files.List().Q(q).Fields("files(id, name, modifiedTime)").Spaces("drive").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w: %w", c.fileName, shared.ErrNetwork, err)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

// escape quotes a value for a Drive search query.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
