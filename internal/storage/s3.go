package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"tenant-backup/internal/errors"
)

// S3Provider stores archives in an S3 bucket under a key prefix
type S3Provider struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3Provider creates an S3 provider
func NewS3Provider(config *S3Config) (*S3Provider, error) {
	if config == nil || config.Bucket == "" {
		return nil, errors.NewStorageError("S3 storage requires a bucket", nil)
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.NewStorageError("failed to create AWS session", err)
	}

	return &S3Provider{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

func (p *S3Provider) objectKey(key string) string {
	return p.prefix + key
}

// Store uploads one archive
func (p *S3Provider) Store(ctx context.Context, key string, data []byte) error {
	_, err := p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return errors.NewStorageError("failed to upload archive to S3", err)
	}
	return nil
}

// Retrieve downloads one archive
func (p *S3Provider) Retrieve(ctx context.Context, key string) ([]byte, error) {
	output, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
	})
	if err != nil {
		if strings.Contains(err.Error(), s3.ErrCodeNoSuchKey) {
			return nil, errors.NewNotFoundError("archive "+key+" does not exist", err)
		}
		return nil, errors.NewStorageError("failed to download archive from S3", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, errors.NewStorageError("failed to read archive body", err)
	}
	return data, nil
}

// Delete removes one archive
func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
	})
	if err != nil {
		return errors.NewStorageError("failed to delete archive from S3", err)
	}
	return nil
}

// List returns archives under the prefix
func (p *S3Provider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.objectKey(prefix)),
	}
	err := p.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, object := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:        strings.TrimPrefix(aws.StringValue(object.Key), p.prefix),
				Size:       aws.Int64Value(object.Size),
				ModifiedAt: aws.TimeValue(object.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to list archives in S3", err)
	}
	return objects, nil
}
