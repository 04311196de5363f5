package aof

import (
	"context"
	"fmt"
	"io"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ridgedb/ridgedb/pkg/log"
)

// S3Sink pushes/pulls the snapshot file to/from an S3 bucket, the
// optional remote half of §9's "snapshot file format" open question —
// nothing outside this package depends on the bucket layout, so a
// fresh instance can bootstrap its keyspace from the last snapshot any
// node pushed. There is no original_source equivalent (the reference
// implementation is local-disk only); this generalises the bucket/key
// upload shape from cmd/cc-backend's archive-storage configuration,
// wired per SPEC_FULL.md's domain-stack table onto aws-sdk-go-v2.
type S3Sink struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Sink loads the default AWS config chain (env vars, shared
// config/credentials files, or the instance's IAM role) and targets
// bucket/key for snapshot uploads.
func NewS3Sink(ctx context.Context, bucket, key string) (*S3Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("aof: S3 sink config load failed: %w", err)
	}
	return &S3Sink{client: s3.NewFromConfig(cfg), bucket: bucket, key: key}, nil
}

// Upload pushes localPath's contents to the configured bucket/key.
func (s *S3Sink) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("aof: S3 upload open %q failed: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("aof: S3 upload to s3://%s/%s failed: %w", s.bucket, s.key, err)
	}
	log.Infof("aof: snapshot uploaded to s3://%s/%s", s.bucket, s.key)
	return nil
}

// Download fetches the configured bucket/key into localPath, creating
// or truncating it. Used at startup to bootstrap from a remote
// snapshot before replaying any local AOF tail.
func (s *S3Sink) Download(ctx context.Context, localPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
	})
	if err != nil {
		return fmt.Errorf("aof: S3 download of s3://%s/%s failed: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("aof: S3 download create %q failed: %w", localPath, err)
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	for {
		n, rerr := out.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("aof: S3 download write failed: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("aof: S3 download read failed: %w", rerr)
		}
	}
	log.Infof("aof: snapshot downloaded from s3://%s/%s", s.bucket, s.key)
	return nil
}
