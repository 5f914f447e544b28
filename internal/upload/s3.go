package upload

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/example/photoauth/internal/logging"
)

// PutObjectAPI is the subset of the S3 client used by S3Uploader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes photos straight to a bucket under BucketPath.
type S3Uploader struct {
	client     PutObjectAPI
	bucket     string
	bucketPath string
	logger     *zap.Logger
}

// NewS3Uploader creates an uploader writing to bucket.
func NewS3Uploader(client PutObjectAPI, bucket, bucketPath string, logger *zap.Logger) *S3Uploader {
	return &S3Uploader{
		client:     client,
		bucket:     bucket,
		bucketPath: bucketPath,
		logger:     logger.Named("s3_uploader"),
	}
}

// Key returns the object key inside the bucket.
func (u *S3Uploader) Key(objectKey string) string {
	prefix := strings.Trim(u.bucketPath, "/")
	if prefix == "" {
		return objectKey
	}
	return path.Join(prefix, objectKey)
}

// Upload stores data with a single PutObject call.
func (u *S3Uploader) Upload(ctx context.Context, objectKey string, data []byte) error {
	key := u.Key(objectKey)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(ContentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		logging.WithOperation(u.logger, "upload.s3_put", objectKey).Error("put object failed",
			zap.String("bucket", u.bucket), zap.String("key", key), zap.Error(err))
		return logging.NewOperationError("upload.s3_put", objectKey, err)
	}
	return nil
}
