package objectclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// MaxObjectSize caps a single download.
const MaxObjectSize = 50 * 1024 * 1024

// extensionTypes maps file extensions to the content types the ingestor
// understands. Anything else falls back to the system MIME table.
var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".text": "text/plain",
	".md":   "text/plain",
}

// S3Client exposes one bucket prefix as an external folder.
type S3Client struct {
	client   s3API
	uploader uploader
	region   string
	bucket   string
	prefix   string
	maxSize  int64
}

func NewS3Client(ctx context.Context, cfg *cfg.Config) (*S3Client, error) {
	if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
		return nil, fmt.Errorf("%w: AWS credentials not set", core.ErrConfiguration)
	}
	if cfg.AwsRegion == "" {
		return nil, fmt.Errorf("%w: AWS_REGION not set", core.ErrConfiguration)
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("%w: S3 bucket name not set", core.ErrConfiguration)
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", core.ErrConfiguration, err)
	}

	client := s3.NewFromConfig(awsCfg)
	log.Println("Connected to AWS S3 successfully")

	return newS3Client(client, manager.NewUploader(client), cfg.AwsRegion, cfg.BucketName, cfg.S3Prefix), nil
}

func newS3Client(client s3API, up uploader, region, bucket, prefix string) *S3Client {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Client{client: client, uploader: up, region: region, bucket: bucket, prefix: prefix, maxSize: MaxObjectSize}
}

func (c *S3Client) Name() string { return "s3" }

// ListFiles returns every object directly or indirectly under the prefix.
func (c *S3Client) ListFiles(ctx context.Context) ([]core.FolderFile, error) {
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})

	var files []core.FolderFile
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			f := core.FolderFile{
				ID:          key,
				Name:        path.Base(key),
				ContentType: ContentTypeForName(key),
				ContentHash: strings.Trim(aws.ToString(obj.ETag), `"`),
			}
			f.SourceMimeType = f.ContentType
			if obj.LastModified != nil {
				f.ModifiedTime = obj.LastModified.UTC().Format(time.RFC3339)
			}
			files = append(files, f)
		}
	}
	return files, nil
}

func (c *S3Client) Download(ctx context.Context, file core.FolderFile) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(file.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("object %s exceeds %d bytes", file.ID, c.maxSize)
	}
	return body, nil
}

// Upload stores data under the prefix and returns the new object as a folder file.
func (c *S3Client) Upload(ctx context.Context, name, contentType string, data []byte) (core.FolderFile, error) {
	key := c.prefix + path.Base(name)
	if contentType == "" {
		contentType = ContentTypeForName(name)
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	out, err := c.uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return core.FolderFile{}, fmt.Errorf("s3 upload failed: %w", err)
	}

	f := core.FolderFile{
		ID:             key,
		Name:           path.Base(key),
		ContentType:    contentType,
		SourceMimeType: contentType,
		ModifiedTime:   time.Now().UTC().Format(time.RFC3339),
	}
	if out != nil {
		f.ContentHash = strings.Trim(aws.ToString(out.ETag), `"`)
	}
	slog.Debug("uploaded object", "url", c.URL(key), "content_type", contentType)
	return f, nil
}

// URL is the virtual-hosted style address of key.
func (c *S3Client) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// ContentTypeForName infers a content type from the file extension.
func ContentTypeForName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var _ core.FolderSource = (*S3Client)(nil)
