package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxDocumentBytes int64 = 20 * 1024 * 1024

// StoredObject describes an uploaded document object.
type StoredObject struct {
	Key         string
	Name        string
	ContentType string
	Size        int64
}

// DocumentStorage keeps employee documents in a MinIO/S3 bucket.
type DocumentStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewDocumentStorageFromEnv initialises DocumentStorage from MINIO_*
// environment variables. Returns (nil, nil) when not configured.
func NewDocumentStorageFromEnv() (*DocumentStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}

	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL"))
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &DocumentStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Configured reports whether uploads can be served.
func (s *DocumentStorage) Configured() bool {
	return s != nil && s.client != nil
}

// Upload stores a multipart document for the given employee. The object key
// is documents/employee-<id>/<uuid><ext>.
func (s *DocumentStorage) Upload(ctx context.Context, employeeID uint, fileHeader *multipart.FileHeader) (*StoredObject, error) {
	if !s.Configured() {
		return nil, errors.New("document storage not configured")
	}
	if fileHeader == nil {
		return nil, errors.New("document file not provided")
	}
	if fileHeader.Size > 0 && fileHeader.Size > maxDocumentBytes {
		return nil, fmt.Errorf("document size exceeds %d bytes", maxDocumentBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer src.Close()

	var buffer bytes.Buffer
	written, err := io.Copy(&buffer, io.LimitReader(src, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if written > maxDocumentBytes {
		return nil, fmt.Errorf("document size exceeds %d bytes", maxDocumentBytes)
	}

	contentType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	return s.UploadBytes(ctx, employeeID, fileHeader.Filename, buffer.Bytes(), contentType)
}

// UploadBytes stores raw document content for the given employee.
func (s *DocumentStorage) UploadBytes(ctx context.Context, employeeID uint, name string, data []byte, contentType string) (*StoredObject, error) {
	if !s.Configured() {
		return nil, errors.New("document storage not configured")
	}
	if len(data) == 0 {
		return nil, errors.New("document is empty")
	}
	if int64(len(data)) > maxDocumentBytes {
		return nil, fmt.Errorf("document size exceeds %d bytes", maxDocumentBytes)
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	displayName := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if displayName == "" || displayName == "." || displayName == "/" {
		displayName = "document"
	}

	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(displayName)))
	if ext == "" {
		ext = ".bin"
	}
	objectKey := path.Join(
		"documents",
		fmt.Sprintf("employee-%d", employeeID),
		fmt.Sprintf("%s%s", uuid.NewString(), ext),
	)

	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(uploadCtx, s.bucket, objectKey, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	return &StoredObject{
		Key:         objectKey,
		Name:        displayName,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// PresignedURL returns a temporary download URL for the object key.
func (s *DocumentStorage) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	if !s.Configured() {
		return "", errors.New("document storage not configured")
	}
	objectKey = strings.TrimPrefix(strings.TrimSpace(objectKey), "/")
	if objectKey == "" {
		return "", errors.New("object key is required")
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	presignCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url, err := s.client.PresignedGetObject(presignCtx, s.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

// Remove deletes the object with the given key. Missing keys are ignored.
func (s *DocumentStorage) Remove(ctx context.Context, objectKey string) error {
	if !s.Configured() {
		return nil
	}
	objectKey = strings.TrimPrefix(strings.TrimSpace(objectKey), "/")
	if objectKey == "" {
		return nil
	}

	removeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.client.RemoveObject(removeCtx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}
