package repository

import (
	"context"
	"fmt"
	"io"
	"time"

	"gratitude_chat_service/pkg/database"

	"github.com/google/uuid"
)

// ImageStore upload message images, returning a retrieval URL
type ImageStore interface {
	UploadMessageImage(ctx context.Context, threadID, fileName string, r io.Reader, size int64, contentType string) (string, error)
}

type minioImageStore struct {
	client *database.MinIOClient
	expiry time.Duration
}

// NewMinioImageStore create an ImageStore backed by minio
func NewMinioImageStore(client *database.MinIOClient) ImageStore {
	return &minioImageStore{
		client: client,
		expiry: 7 * 24 * time.Hour, // presign maximum
	}
}

func (s *minioImageStore) UploadMessageImage(ctx context.Context, threadID, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("threads/%s/%s-%s", threadID, uuid.New().String(), fileName)
	if err := s.client.UploadStream(ctx, objectName, r, size, contentType); err != nil {
		return "", err
	}
	return s.client.PresignGetURL(ctx, objectName, s.expiry)
}
