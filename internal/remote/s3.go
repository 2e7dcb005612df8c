package remote

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/distribox/atlas/internal/store"
)

const DefaultRegion = "us-east-1"

// S3Config describes how to reach an S3-compatible service. Empty
// credentials fall back to the SDK default chain (environment, shared
// config, instance role).
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	DisableSSL      bool
}

// S3Store implements store.ObjectStore with aws-sdk-go.
type S3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	awsCfg := aws.NewConfig().
		WithRegion(region).
		WithS3ForcePathStyle(cfg.ForcePathStyle).
		WithDisableSSL(cfg.DisableSSL)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	client := s3.New(sess)
	return &S3Store{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
	}, nil
}

// List follows continuation tokens until the listing is exhausted.
func (s *S3Store) List(ctx context.Context, bucket string) ([]store.ObjectInfo, error) {
	var objects []store.ObjectInfo
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			objects = append(objects, store.ObjectInfo{
				Key:  aws.StringValue(obj.Key),
				Size: aws.Int64Value(obj.Size),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list bucket %q: %w", bucket, err)
	}
	return objects, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, store.ErrNotFound)
		}
		return nil, fmt.Errorf("get %q from bucket %q: %w", key, bucket, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

// Put uses the multipart uploader, which reads r in bounded parts, so
// multi-gigabyte images are never held in memory. When size is known and r
// yields a different number of bytes the object is removed again and an
// error is returned.
func (s *S3Store) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	body := &countingReader{r: r}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %q to bucket %q: %w", key, bucket, err)
	}

	if size >= 0 && body.n != size {
		if _, derr := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); derr != nil {
			return fmt.Errorf("upload %q: read %d bytes, expected %d (cleanup: %v)", key, body.n, size, derr)
		}
		return fmt.Errorf("upload %q: read %d bytes, expected %d", key, body.n, size)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Delete removes an object. S3 reports success for absent keys, so
// ErrNotFound is only returned by stores that distinguish the two.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("%s/%s: %w", bucket, key, store.ErrNotFound)
		}
		return fmt.Errorf("delete %q from bucket %q: %w", key, bucket, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}
