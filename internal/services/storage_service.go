// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/inventory"
)

// StorageService archives accepted full snapshots to S3. Without a bucket or
// credentials it is disabled and every call is a no-op.
type StorageService struct {
	s3Client s3iface.S3API
	bucket   string
	prefix   string
}

type snapshotDocument struct {
	PharmacyID uint             `json:"pharmacy_id"`
	SyncedAt   time.Time        `json:"synced_at"`
	Items      []inventory.Item `json:"items"`
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.S3Bucket == "" || cfg.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewStorageServiceWithClient(s3.New(sess), cfg.S3Bucket, cfg.S3Prefix), nil
}

func NewStorageServiceWithClient(client s3iface.S3API, bucket, prefix string) *StorageService {
	return &StorageService{
		s3Client: client,
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *StorageService) Enabled() bool {
	return s.s3Client != nil && s.bucket != ""
}

// SnapshotKey is <prefix>/<pharmacy_id>/<UTC timestamp>.json.
func (s *StorageService) SnapshotKey(pharmacyID uint, syncedAt time.Time) string {
	name := syncedAt.UTC().Format("20060102T150405.000000000Z") + ".json"
	return path.Join(s.prefix, fmt.Sprintf("%d", pharmacyID), name)
}

func (s *StorageService) ArchiveSnapshot(ctx context.Context, pharmacyID uint, syncedAt time.Time, items []inventory.Item) error {
	if !s.Enabled() {
		return nil
	}

	body, err := json.Marshal(snapshotDocument{
		PharmacyID: pharmacyID,
		SyncedAt:   syncedAt.UTC(),
		Items:      items,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.SnapshotKey(pharmacyID, syncedAt)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}

	return nil
}
