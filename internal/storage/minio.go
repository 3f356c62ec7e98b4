package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const UploadPrefix = "uploads"

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	ContentType string
	Size        int64
}

type MinioStore struct {
	Client *minio.Client
	Bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, secure bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{Client: client, Bucket: bucket}, nil
}

func (s *MinioStore) PutStream(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error {
	_, err := s.Client.PutObject(ctx, s.Bucket, objectPath, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Open returns a reader for objectPath. A missing object yields ErrObjectNotFound.
func (s *MinioStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}
	return obj, ObjectInfo{ContentType: stat.ContentType, Size: stat.Size}, nil
}

func GuessContentType(filename string, fallback string) string {
	if ext := path.Ext(filename); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return "application/octet-stream"
}

// UploadObjectPath maps a stored upload name to its object key.
func UploadObjectPath(name string) string {
	return path.Join(UploadPrefix, strings.TrimPrefix(path.Clean("/"+name), "/"))
}

// SafeName reduces an uploaded filename to a plain base name without spaces.
func SafeName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '/' || r == '?' || r == '#' || r == '%':
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
