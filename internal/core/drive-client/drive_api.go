package driveclient

import (
	"context"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// driveAPI is the slice of the Drive files API the client uses.
type driveAPI interface {
	List(ctx context.Context, query, pageToken string) ([]*drive.File, string, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)
	Create(ctx context.Context, meta *drive.File, media io.Reader) (*drive.File, error)
}

type serviceAPI struct {
	svc *drive.Service
}

func (s serviceAPI) List(ctx context.Context, query, pageToken string) ([]*drive.File, string, error) {
	call := s.svc.Files.List().
		Q(query).
		Fields(listFields).
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", err
	}
	return resp.Files, resp.NextPageToken, nil
}

func (s serviceAPI) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := s.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (s serviceAPI) Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	resp, err := s.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (s serviceAPI) Create(ctx context.Context, meta *drive.File, media io.Reader) (*drive.File, error) {
	return s.svc.Files.Create(meta).
		Media(media, googleapi.ContentType(meta.MimeType)).
		Fields("id, name, mimeType, md5Checksum, modifiedTime").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}
