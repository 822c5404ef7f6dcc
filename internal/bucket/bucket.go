// Package bucket stores exported report documents and product images in an
// S3-compatible bucket.
package bucket

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	S3AccessKey       string `mapstructure:"s3AccessKey"`
	S3SecretAccessKey string `mapstructure:"s3SecretAccessKey"`
	S3Endpoint        string `mapstructure:"s3Endpoint"`
	S3BucketName      string `mapstructure:"s3BucketName"`
	S3BucketLocation  string `mapstructure:"s3BucketLocation"`
	BaseFolder        string `mapstructure:"baseFolder"`
}

type Bucket struct {
	*minio.Client
	*Config
}

func (c *Config) Init() (*Bucket, error) {
	cli, err := minio.New(c.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.S3AccessKey, c.S3SecretAccessKey, ""),
		Secure: true,
		Region: c.S3BucketLocation,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init s3 client: %w", err)
	}
	return &Bucket{
		Client: cli,
		Config: c,
	}, nil
}

// UploadReportDocument puts an exported report under reports/ and returns
// its public object URL.
func (b *Bucket) UploadReportDocument(ctx context.Context, name string, raw []byte, contentType string) (string, error) {
	objectName := path.Join(b.BaseFolder, "reports", name)

	_, err := b.PutObject(ctx, b.S3BucketName, objectName,
		bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: "no-cache",
		})
	if err != nil {
		return "", fmt.Errorf("can't upload report document: %w", err)
	}

	u := url.URL{
		Scheme: "https",
		Host:   b.S3Endpoint,
		Path:   path.Join(b.S3BucketName, objectName),
	}
	return u.String(), nil
}
