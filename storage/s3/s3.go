package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3client "github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Prefix = "s3://"

var ErrInvalidS3Path = errors.New("invalid s3 path, expect s3://bucket/key")

type S3 struct {
	Bucket          string
	Key             string
	Region          string
	AccessKeyId     string
	SecretAccessKey string
	SessionToken    string
	Endpoint        string // for s3 compatible services, uses path style addressing
}

func NewS3(bucket, key, region, accessKeyId, secretAccessKey, sessionToken string) *S3 {
	return &S3{
		Bucket:          bucket,
		Key:             key,
		Region:          region,
		AccessKeyId:     accessKeyId,
		SecretAccessKey: secretAccessKey,
		SessionToken:    sessionToken,
	}
}

// ParsePath splits s3://bucket/path/to/key. ok is false when path is not an s3 path.
func ParsePath(path string) (bucket, key string, ok bool, err error) {
	name := strings.TrimSpace(path)

	if !strings.HasPrefix(name, s3Prefix) {
		return "", "", false, nil
	}

	bucket, key, found := strings.Cut(strings.TrimPrefix(name, s3Prefix), "/")
	if !found || bucket == "" || key == "" {
		return "", "", true, ErrInvalidS3Path
	}

	return bucket, key, true, nil
}

func (s3 *S3) awsConfig(ctx context.Context) (aws.Config, error) {
	opts := make([]func(*config.LoadOptions) error, 0, 2)

	if s3.Region != "" {
		opts = append(opts, config.WithRegion(s3.Region))
	}

	if s3.AccessKeyId != "" && s3.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3.AccessKeyId, s3.SecretAccessKey, s3.SessionToken),
		))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}

func (s3 *S3) client(ctx context.Context) (*s3client.Client, error) {
	cfg, err := s3.awsConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to load aws config, error: %v", err)
	}

	return s3client.NewFromConfig(cfg, func(o *s3client.Options) {
		if s3.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s3 *S3) GetContent(ctx context.Context) ([]byte, error) {
	client, err := s3.client(ctx)
	if err != nil {
		return nil, err
	}

	output, err := client.GetObject(ctx, &s3client.GetObjectInput{
		Bucket: aws.String(s3.Bucket),
		Key:    aws.String(s3.Key),
	})

	if err != nil {
		return nil, fmt.Errorf("%v unable to fetch s3 content", err)
	}

	defer func() {
		if err := output.Body.Close(); err != nil {
			slog.Error("fail to close s3 object body", slog.Any("error", err))
		}
	}()

	return io.ReadAll(output.Body)
}
