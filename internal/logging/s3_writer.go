package logging

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Writer appends records to S3. S3 objects cannot be appended to, so a
// partition is a key prefix rather than a single file: each batch becomes
// one self-contained JSONL object under {prefix}{partition}/. Readers
// recover every complete record per object, which preserves the same
// crash-safety property as the local appender.
type S3Writer struct {
	client  *s3.Client
	bucket  string
	prefix  string
	podName string
}

// NewS3Writer creates a new S3 writer using the default AWS credential chain.
func NewS3Writer(ctx context.Context, bucket, region, prefix, podName string) (*S3Writer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Writer{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		prefix:  prefix,
		podName: podName,
	}, nil
}

// Append uploads one JSON Lines object holding the batch.
// Key format: {prefix}{partition}/{pod}-{timestamp}-{nanos}.jsonl
func (w *S3Writer) Append(ctx context.Context, partition string, lines [][]byte) error {
	if len(lines) == 0 {
		return nil
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s%s/%s-%s-%d.jsonl",
		w.prefix,
		partition,
		w.podName,
		now.Format("20060102-150405"),
		now.Nanosecond(),
	)

	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(line)
		if len(line) == 0 || line[len(line)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}
