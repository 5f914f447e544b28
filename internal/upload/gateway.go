package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/photoauth/internal/logging"
)

// GatewayUploader PUTs photos to {APIURL}/{BucketPath}/{key} through the API
// gateway that fronts the bucket.
type GatewayUploader struct {
	APIURL     string
	BucketPath string
	HTTPClient *http.Client
	logger     *zap.Logger
}

// NewGatewayUploader builds an uploader for the gateway at apiURL. The values
// are used as given.
func NewGatewayUploader(apiURL, bucketPath string, client *http.Client, logger *zap.Logger) *GatewayUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &GatewayUploader{
		APIURL:     apiURL,
		BucketPath: bucketPath,
		HTTPClient: client,
		logger:     logger.Named("gateway_uploader"),
	}
}

// URL returns the PUT target for objectKey.
func (g *GatewayUploader) URL(objectKey string) string {
	return strings.TrimRight(g.APIURL, "/") + "/" + strings.Trim(g.BucketPath, "/") + "/" + objectKey
}

// Upload sends data in one PUT request. Any non-2xx status is a *StatusError.
func (g *GatewayUploader) Upload(ctx context.Context, objectKey string, data []byte) error {
	opLogger := logging.WithOperation(g.logger, "upload.put", objectKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.URL(objectKey), bytes.NewReader(data))
	if err != nil {
		return logging.NewOperationError("upload.put", objectKey, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", ContentType)
	req.ContentLength = int64(len(data))

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		opLogger.Error("storage request failed", zap.Error(err))
		return logging.NewOperationError("upload.put", objectKey, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		opLogger.Warn("storage rejected photo", zap.Int("status", resp.StatusCode))
		return logging.NewOperationError("upload.put", objectKey, statusErr)
	}

	opLogger.Debug("photo uploaded", zap.Int("bytes", len(data)))
	return nil
}
