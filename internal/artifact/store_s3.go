package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store implements Store on Amazon S3.
type S3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

// S3Config configures the S3 artifact backend.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

// NewS3Store creates a new S3-backed artifact store.
func NewS3Store(config *S3Config) (*S3Store, error) {
	if config == nil {
		return nil, fmt.Errorf("S3 storage configuration is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	if config.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   config.Bucket,
		prefix:   strings.TrimSuffix(config.Prefix, "/"),
	}, nil
}

// Put streams src into the named S3 object.
func (s *S3Store) Put(ctx context.Context, name string, src io.Reader) (int64, error) {
	counted := &countingReader{r: src}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   counted,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload artifact %s to S3: %w", name, err)
	}
	return counted.n, nil
}

// Get opens the named S3 object for reading.
func (s *S3Store) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to get artifact %s from S3: %w", name, err)
	}
	return out.Body, nil
}

// Stat returns the size of the named S3 object.
func (s *S3Store) Stat(ctx context.Context, name string) (int64, error) {
	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("failed to stat artifact %s in S3: %w", name, err)
	}
	return aws.Int64Value(out.ContentLength), nil
}

// Delete removes the named S3 object.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact %s from S3: %w", name, err)
	}
	return nil
}

// List returns artifact names with the given prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			names = append(names, key)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts in S3: %w", err)
	}
	return names, nil
}

// HealthCheck verifies the bucket is reachable.
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("S3 artifact store health check failed: %w", err)
	}
	return nil
}

func (s *S3Store) key(name string) string {
	name = sanitizeName(name)
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func isS3NotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// countingReader counts bytes as they are consumed by the uploader.
type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
