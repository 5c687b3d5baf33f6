package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
)

// ObjectPutter is the subset of the S3 client the archiver uses
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveConfig configures where export copies are kept
type ArchiveConfig struct {
	Bucket string
	Prefix string // e.g. "exports/"
	Region string
}

// Archiver stores a copy of each export in S3
type Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	log    logger.Logger
}

// NewS3Archiver loads AWS credentials from the default chain
func NewS3Archiver(ctx context.Context, cfg ArchiveConfig, log logger.Logger) (*Archiver, error) {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewArchiver(s3.NewFromConfig(awsCfg), cfg, log), nil
}

// NewArchiver creates an archiver over an existing client
func NewArchiver(client ObjectPutter, cfg ArchiveConfig, log logger.Logger) *Archiver {
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Archiver{client: client, bucket: cfg.Bucket, prefix: prefix, log: log}
}

// Archive renders voters as CSV and uploads it. It returns the object key.
func (a *Archiver) Archive(ctx context.Context, voters []models.Voter, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, voters); err != nil {
		return "", fmt.Errorf("failed to render export: %w", err)
	}

	key := a.prefix + Filename(now)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	a.log.Info("Archived voter export", "bucket", a.bucket, "key", key, "rows", len(voters))
	return key, nil
}
