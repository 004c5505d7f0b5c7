package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
)

// s3API is the part of *s3.Client used by S3.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads results below a bucket prefix.
type S3 struct {
	client s3API
	bucket string
	prefix string
	logger *logging.Logger
}

// NewS3 builds an S3 saver. Credentials come from AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY when both are set, otherwise from the default chain.
func NewS3(ctx context.Context, dest Destination, httpClient *nethttp.Client, logger *logging.Logger) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if httpClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}
	if dest.Region != "" {
		opts = append(opts, awsconfig.WithRegion(dest.Region))
	}
	if id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); id != "" && secret != "" {
		static := credentials.NewStaticCredentialsProvider(id, secret, os.Getenv("AWS_SESSION_TOKEN"))
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(static, func(o *aws.CredentialsCacheOptions) {
			o.ExpiryWindow = 5 * time.Minute
		})))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3(s3.NewFromConfig(cfg), dest, logger), nil
}

func newS3(client s3API, dest Destination, logger *logging.Logger) *S3 {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &S3{client: client, bucket: dest.Bucket, prefix: dest.Prefix, logger: logger}
}

// Save uploads the result. Notebooks are small, so the stream is buffered to
// give the SDK a seekable body for signing.
func (s *S3) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	key := objectKey(s.prefix, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("application/x-ipynb+json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3://%s/%s: %w", s.bucket, key, err)
	}

	location := "s3://" + s.bucket + "/" + key
	s.logger.Debug().Str("location", location).Int("bytes", buf.Len()).Msg("result uploaded")
	return location, nil
}
