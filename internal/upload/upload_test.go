package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/example/photoauth/internal/logging"
)

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("abc"); got != "abc.jpeg" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestGatewayUploaderPutsJPEG(t *testing.T) {
	var (
		method, path, contentType string
		body                      []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	u := NewGatewayUploader(server.URL+"/prod", "photos", server.Client(), zap.NewNop())
	if err := u.Upload(context.Background(), "id-1.jpeg", []byte("jpeg-bytes")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", method)
	}
	if path != "/prod/photos/id-1.jpeg" {
		t.Fatalf("unexpected path %q", path)
	}
	if contentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	if string(body) != "jpeg-bytes" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestGatewayUploaderNon2xxIsStatusError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	u := NewGatewayUploader(server.URL, "photos", server.Client(), zap.NewNop())
	err := u.Upload(context.Background(), "id-2.jpeg", []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) || opErr.ObjectKey != "id-2.jpeg" {
		t.Fatalf("expected OperationError with object key, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestGatewayUploaderTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	u := NewGatewayUploader(url, "photos", nil, zap.NewNop())
	if err := u.Upload(context.Background(), "id-3.jpeg", []byte("x")); err == nil {
		t.Fatal("expected transport error")
	}
}

type stubS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (s *stubS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.input = params
	s.body, _ = io.ReadAll(params.Body)
	if s.err != nil {
		return nil, s.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3UploaderPutObject(t *testing.T) {
	client := &stubS3{}
	u := NewS3Uploader(client, "kiosk-bucket", "/visitors/", zap.NewNop())

	if err := u.Upload(context.Background(), "id-4.jpeg", []byte("jpeg")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if *client.input.Bucket != "kiosk-bucket" {
		t.Fatalf("unexpected bucket %q", *client.input.Bucket)
	}
	if *client.input.Key != "visitors/id-4.jpeg" {
		t.Fatalf("unexpected key %q", *client.input.Key)
	}
	if *client.input.ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", *client.input.ContentType)
	}
	if string(client.body) != "jpeg" {
		t.Fatalf("unexpected body %q", client.body)
	}
}

func TestS3UploaderWrapsError(t *testing.T) {
	sentinel := errors.New("access denied")
	u := NewS3Uploader(&stubS3{err: sentinel}, "b", "", zap.NewNop())

	err := u.Upload(context.Background(), "id-5.jpeg", []byte("jpeg"))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if u.Key("id-5.jpeg") != "id-5.jpeg" {
		t.Fatalf("unexpected key without prefix %q", u.Key("id-5.jpeg"))
	}
}
