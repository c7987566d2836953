// Package archive stores raw webhook payloads in S3 so extraction-policy
// changes can be replayed against the originals. Entirely optional: with no
// bucket configured the archiver is nil and every call is a no-op.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes webhook payloads under webhooks/YYYY/MM/DD/<uuid>.json.
type Archiver struct {
	client s3PutAPI
	bucket string
	prefix string
}

// Config contains the archive settings.
type Config struct {
	Bucket string
	Prefix string
	Region string
}

// New creates an S3-backed archiver, or nil when no bucket is configured.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// StorePayload uploads one payload. Fire-and-forget by contract: callers run
// it in a goroutine and failures are logged, never surfaced to the webhook
// response.
func (a *Archiver) StorePayload(ctx context.Context, payload []byte) {
	if a == nil {
		return
	}
	key := a.key(time.Now().UTC())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Printf("archive: put %s failed: %v", key, err)
	}
}

func (a *Archiver) key(now time.Time) string {
	key := fmt.Sprintf("webhooks/%s/%s.json", now.Format("2006/01/02"), uuid.New().String())
	if a.prefix != "" {
		return a.prefix + "/" + key
	}
	return key
}
