// Package recognition queries the attendee recognition service.
package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/example/photoauth/internal/logging"
)

// Outcome classifies a recognition answer.
type Outcome string

const (
	Matched      Outcome = "matched"
	NotFound     Outcome = "not_found"
	Unrecognized Outcome = "unrecognized"
)

// Messages the service puts in the Message field.
const (
	messageSuccess  = "Success"
	messageNotFound = "NotFound"
)

// Result is the classified answer for one photo.
type Result struct {
	Outcome   Outcome
	Message   string
	FirstName string
	LastName  string
}

// StatusError reports a non-success response other than 403.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recognition service responded %s", e.Status)
}

type attendeeResponse struct {
	Message   string `json:"Message"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Client calls GET {APIURL}/attendee?objectKey=<key>.
type Client struct {
	APIURL     string
	HTTPClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the service at apiURL. The value is used as
// given.
func NewClient(apiURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		APIURL:     apiURL,
		HTTPClient: httpClient,
		logger:     logger.Named("recognition_client"),
	}
}

// URL returns the lookup URL for objectKey.
func (c *Client) URL(objectKey string) string {
	return strings.TrimRight(c.APIURL, "/") + "/attendee?objectKey=" + url.QueryEscape(objectKey)
}

// Lookup asks the service who is in the photo stored under objectKey.
// A 403 means the person is not enrolled and yields NotFound whatever the
// body says. Other non-2xx answers, transport failures and undecodable bodies
// are returned as errors.
func (c *Client) Lookup(ctx context.Context, objectKey string) (*Result, error) {
	opLogger := logging.WithOperation(c.logger, "recognition.lookup", objectKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(objectKey), nil)
	if err != nil {
		return nil, logging.NewOperationError("recognition.lookup", objectKey, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		opLogger.Error("recognition request failed", zap.Error(err))
		return nil, logging.NewOperationError("recognition.lookup", objectKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		opLogger.Info("person not enrolled")
		return &Result{Outcome: NotFound}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		opLogger.Warn("recognition service error", zap.Int("status", resp.StatusCode))
		return nil, logging.NewOperationError("recognition.lookup", objectKey,
			&StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	var body attendeeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		opLogger.Warn("undecodable recognition response", zap.Error(err))
		return nil, logging.NewOperationError("recognition.lookup", objectKey, fmt.Errorf("decode response: %w", err))
	}

	result := Classify(body.Message, body.FirstName, body.LastName)
	opLogger.Info("recognition answered", zap.String("outcome", string(result.Outcome)))
	return result, nil
}

// Classify maps a decoded 2xx body to an outcome. Success needs both names
// to count as a match.
func Classify(message, firstName, lastName string) *Result {
	r := &Result{Message: message, FirstName: firstName, LastName: lastName}
	switch {
	case message == messageSuccess && firstName != "" && lastName != "":
		r.Outcome = Matched
	case message == messageNotFound:
		r.Outcome = NotFound
	default:
		r.Outcome = Unrecognized
	}
	return r
}
