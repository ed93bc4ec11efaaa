package s3

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Environment variables read by FromEnv.
const (
	EnvPreset    = "FILEREADER_S3_PRESET" // "localstack" or "minio"
	EnvBucket    = "FILEREADER_S3_BUCKET"
	EnvPrefix    = "FILEREADER_S3_PREFIX"
	EnvRegion    = "FILEREADER_S3_REGION"
	EnvEndpoint  = "FILEREADER_S3_ENDPOINT"
	EnvPathStyle = "FILEREADER_S3_PATH_STYLE"
	EnvAccessKey = "FILEREADER_S3_ACCESS_KEY"
	EnvSecretKey = "FILEREADER_S3_SECRET_KEY"
)

// ClientConfig describes how to reach an S3-compatible service.
type ClientConfig struct {
	// Region is required.
	Region string

	// Endpoint overrides the AWS endpoint, e.g. "http://localhost:4566".
	Endpoint string

	// UsePathStyle selects path-style addressing, which LocalStack and
	// MinIO need.
	UsePathStyle bool

	// AccessKeyID and SecretAccessKey, when both set, are used as static
	// credentials. Otherwise the default AWS credential chain applies.
	AccessKeyID     string
	SecretAccessKey string
}

// LocalStackConfig is a LocalStack on its default port.
func LocalStackConfig() ClientConfig {
	return ClientConfig{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		UsePathStyle:    true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}
}

// MinIOConfig is a MinIO on its default port with default credentials.
func MinIOConfig() ClientConfig {
	return ClientConfig{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	}
}

// FromEnv builds client and store configuration from FILEREADER_S3_*
// variables. A preset supplies defaults that the other variables override.
// getenv is usually os.Getenv.
func FromEnv(getenv func(string) string) (ClientConfig, Config, error) {
	var cc ClientConfig
	switch preset := getenv(EnvPreset); preset {
	case "":
	case "localstack":
		cc = LocalStackConfig()
	case "minio":
		cc = MinIOConfig()
	default:
		return ClientConfig{}, Config{}, fmt.Errorf("s3: unknown %s %q", EnvPreset, preset)
	}

	cc.Region = cmp.Or(getenv(EnvRegion), cc.Region)
	cc.Endpoint = cmp.Or(getenv(EnvEndpoint), cc.Endpoint)
	cc.AccessKeyID = cmp.Or(getenv(EnvAccessKey), cc.AccessKeyID)
	cc.SecretAccessKey = cmp.Or(getenv(EnvSecretKey), cc.SecretAccessKey)
	if v := getenv(EnvPathStyle); v != "" {
		pathStyle, err := strconv.ParseBool(v)
		if err != nil {
			return ClientConfig{}, Config{}, fmt.Errorf("s3: %s: %w", EnvPathStyle, err)
		}
		cc.UsePathStyle = pathStyle
	}

	return cc, Config{Bucket: getenv(EnvBucket), Prefix: getenv(EnvPrefix)}, nil
}

// NewClient creates an S3 client from cfg.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	if cfg.Region == "" {
		return nil, errors.New("s3: region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Open connects with cc and returns a Store for cfg.
func Open(ctx context.Context, cc ClientConfig, cfg Config) (*Store, error) {
	client, err := NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return New(client, cfg)
}
