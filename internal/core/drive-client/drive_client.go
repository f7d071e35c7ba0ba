package driveclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// Google Workspace types exported to plain text before ingestion.
const (
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
	MimeTypeFolder    = "application/vnd.google-apps.folder"
	ExportMimeText    = "text/plain"
)

// MaxDownloadSize caps a single download or export.
const MaxDownloadSize = 50 * 1024 * 1024

const (
	pageSize   = 100
	listFields = "nextPageToken, files(id, name, mimeType, md5Checksum, modifiedTime)"
)

// Drive allows 10 requests/sec/user; stay below it.
const (
	requestsPerSecond = 8
	burst             = 10
)

// DriveClient exposes one Drive folder as an external folder.
type DriveClient struct {
	api      driveAPI
	folderID string
	limiter  *rate.Limiter
	maxSize  int64
}

// NewDriveClient authenticates with the service-account JSON from the config.
func NewDriveClient(ctx context.Context, cfg *config.Config) (*DriveClient, error) {
	if cfg.GoogleServiceAccountJSON == "" || cfg.DriveFolderID == "" {
		return nil, fmt.Errorf("%w: GOOGLE_SERVICE_ACCOUNT_JSON and GOOGLE_DRIVE_FOLDER_ID are required", core.ErrConfiguration)
	}

	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.GoogleServiceAccountJSON)),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: drive service: %w", core.ErrConfiguration, err)
	}
	log.Println("Connected to Google Drive successfully")

	return newDriveClient(serviceAPI{svc: svc}, cfg.DriveFolderID), nil
}

func newDriveClient(api driveAPI, folderID string) *DriveClient {
	return &DriveClient{
		api:      api,
		folderID: folderID,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		maxSize:  MaxDownloadSize,
	}
}

func (c *DriveClient) Name() string { return "drive" }

// ListFiles pages through the non-trashed files whose parent is the folder.
// Sub-folders are not descended into.
func (c *DriveClient) ListFiles(ctx context.Context) ([]core.FolderFile, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", strings.ReplaceAll(c.folderID, "'", `\'`))

	var (
		out   []core.FolderFile
		token string
	)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		files, next, err := c.api.List(ctx, query, token)
		if err != nil {
			return nil, fmt.Errorf("drive list failed: %w", err)
		}
		for _, f := range files {
			if f.MimeType == MimeTypeFolder {
				continue
			}
			out = append(out, toFolderFile(f))
		}
		if next == "" {
			return out, nil
		}
		token = next
	}
}

// Download fetches the file body; Google Docs are exported as plain text.
func (c *DriveClient) Download(ctx context.Context, file core.FolderFile) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		rc  io.ReadCloser
		err error
	)
	if file.SourceMimeType == MimeTypeGoogleDoc {
		rc, err = c.api.Export(ctx, file.ID, ExportMimeText)
	} else {
		rc, err = c.api.Download(ctx, file.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("drive download %s failed: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read drive file %s: %w", file.Name, err)
	}
	if int64(len(data)) > c.maxSize {
		return nil, fmt.Errorf("drive file %s exceeds %d bytes", file.Name, c.maxSize)
	}
	return data, nil
}

// Upload creates a new file in the folder.
func (c *DriveClient) Upload(ctx context.Context, name, contentType string, data []byte) (core.FolderFile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return core.FolderFile{}, err
	}
	f, err := c.api.Create(ctx, &drive.File{
		Name:     name,
		MimeType: contentType,
		Parents:  []string{c.folderID},
	}, bytes.NewReader(data))
	if err != nil {
		return core.FolderFile{}, fmt.Errorf("drive upload %s failed: %w", name, err)
	}
	return toFolderFile(f), nil
}

func toFolderFile(f *drive.File) core.FolderFile {
	ct := f.MimeType
	if ct == MimeTypeGoogleDoc {
		ct = ExportMimeText
	}
	return core.FolderFile{
		ID:             f.Id,
		Name:           f.Name,
		ContentType:    ct,
		SourceMimeType: f.MimeType,
		ContentHash:    f.Md5Checksum,
		ModifiedTime:   f.ModifiedTime,
	}
}

var _ core.FolderSource = (*DriveClient)(nil)
