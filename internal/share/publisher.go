// Package share publishes finished recordings so they can be opened on
// another device.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/reelsmith/reelsmith-studio/internal/logging"
)

// LinkTTL is how long a published link stays valid.
const LinkTTL = 24 * time.Hour

// ErrDisabled is returned by a Publisher that has no destination configured.
var ErrDisabled = errors.New("sharing is not configured")

// Item is a local file to publish.
type Item struct {
	ID       string
	Name     string
	Path     string
	MIMEType string
}

// Publisher uploads a recording and returns a link to it.
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, item Item) (string, error)
}

// Disabled is the Publisher used when no bucket is configured.
type Disabled struct {
	logger *slog.Logger
}

func NewDisabled(logger *slog.Logger) *Disabled {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Disabled{logger: logger}
}

func (d *Disabled) Enabled() bool { return false }

func (d *Disabled) Publish(ctx context.Context, item Item) (string, error) {
	d.logger.Info("share requested without a bucket", "recording_id", item.ID)
	return "", ErrDisabled
}

// S3Publisher uploads recordings to a bucket and hands out presigned GET links.
type S3Publisher struct {
	client s3iface.S3API
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Publisher opens an AWS session for region. Credentials come from the
// usual AWS environment and shared config.
func NewS3Publisher(bucket, region string, logger *slog.Logger) (*S3Publisher, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newS3Publisher(s3.New(sess), bucket, logger), nil
}

func newS3Publisher(client s3iface.S3API, bucket string, logger *slog.Logger) *S3Publisher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: "recordings",
		logger: logging.WithComponent(logger, "share"),
	}
}

func (p *S3Publisher) Enabled() bool { return true }

// Key is the object key for item.
func (p *S3Publisher) Key(item Item) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, item.ID, item.Name)
}

func (p *S3Publisher) Publish(ctx context.Context, item Item) (string, error) {
	file, err := os.Open(item.Path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	key := p.Key(item)
	_, err = p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(p.bucket),
		Key:                aws.String(key),
		Body:               file,
		ContentType:        aws.String(item.MIMEType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", item.Name)),
	})
	if err != nil {
		p.logger.Error("upload failed", "bucket", p.bucket, "key", key, "error", err)
		return "", fmt.Errorf("upload recording: %w", err)
	}

	req, _ := p.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(LinkTTL)
	if err != nil {
		return "", fmt.Errorf("presign recording link: %w", err)
	}

	p.logger.Info("recording published", "recording_id", item.ID, "key", key)
	return url, nil
}
