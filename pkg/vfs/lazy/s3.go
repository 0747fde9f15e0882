package lazy

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher retrieves external content from an S3 bucket. The manifest
// ref is the object key (KeyPrefix gets prepended when set).
type S3Fetcher struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3FetcherConfig configures the S3 fetcher.
type S3FetcherConfig struct {
	// Region is the AWS region.
	Region string `mapstructure:"region"`

	// Bucket holds the seeded content.
	Bucket string `mapstructure:"bucket"`

	// KeyPrefix is prepended to every manifest ref.
	KeyPrefix string `mapstructure:"key_prefix"`

	// Endpoint overrides the S3 endpoint (MinIO, Localstack). Empty
	// uses AWS.
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID and SecretAccessKey set static credentials. When both
	// are empty the default AWS credential chain applies.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// ForcePathStyle uses path-style addressing, required by most
	// S3-compatible local stacks.
	ForcePathStyle bool `mapstructure:"force_path_style"`
}

// NewS3Fetcher builds the S3 client and fetcher.
func NewS3Fetcher(ctx context.Context, cfg S3FetcherConfig) (*S3Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3Fetcher{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	key := f.keyPrefix + ref
	result, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", f.bucket, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s/%s: %w", f.bucket, key, err)
	}
	return data, nil
}
