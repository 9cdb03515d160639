package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// progressChunkSize is the write granularity for progress callbacks.
const progressChunkSize = 256 * 1024

// GCSStore implements Store on a Google Cloud Storage bucket. Objects are
// addressed by their object name, which doubles as the public id.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCSStore wires a Store onto an existing bucket. publicBaseURL is the
// CDN or storage domain public URLs are built from; when empty the standard
// storage.googleapis.com form is used.
func NewGCSStore(ctx context.Context, bucket, publicBaseURL string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload validates the file and streams it into the bucket, reporting
// fractional progress as chunks are written.
func (s *GCSStore) Upload(ctx context.Context, file File, opts Options) (*UploadResult, error) {
	if err := ValidateUpload(file); err != nil {
		return nil, err
	}

	objectName := opts.PublicID
	if objectName == "" {
		objectName = file.Name
	}
	if opts.Folder != "" {
		objectName = strings.TrimRight(opts.Folder, "/") + "/" + objectName
	}

	obj := s.client.Bucket(s.bucket).Object(objectName)
	w := obj.NewWriter(ctx)
	w.ContentType = BaseMIMEType(file.MIMEType)
	if len(opts.Tags) > 0 {
		w.Metadata = map[string]string{"tags": strings.Join(opts.Tags, ",")}
	}

	total := int64(len(file.Data))
	reader := bytes.NewReader(file.Data)
	var written int64
	buf := make([]byte, progressChunkSize)
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				_ = w.Close()
				return nil, fmt.Errorf("failed to write object %s: %w", objectName, err)
			}
			written += int64(n)
			if opts.OnProgress != nil {
				opts.OnProgress(float64(written) / float64(total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to read upload data: %w", readErr)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize object %s: %w", objectName, err)
	}

	return &UploadResult{
		URL:      s.publicURL(objectName),
		PublicID: objectName,
		Bytes:    total,
		Format:   FormatFromName(file.Name),
	}, nil
}

// Delete removes an object. A missing object is treated as success.
func (s *GCSStore) Delete(ctx context.Context, publicID string) error {
	err := s.client.Bucket(s.bucket).Object(publicID).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", publicID, err)
	}
	return nil
}

// List returns object names under a prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) publicURL(objectName string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + objectName
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectName)
}
