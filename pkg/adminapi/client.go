package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnauthorized is returned for every 401 response so callers can tell an
// authorization failure apart from an unreachable or broken remote. Test with
// errors.Is.
var ErrUnauthorized = errors.New("admin API rejected credentials")

// Client is the remote moderation API surface.
type Client interface {
	FetchReviews(ctx context.Context) (*ReviewBuckets, error)
	FetchMessages(ctx context.Context) ([]Message, error)

	ApproveReview(ctx context.Context, id string) error
	UnapproveReview(ctx context.Context, id string) error
	DeleteReview(ctx context.Context, id string) error

	MarkMessageRead(ctx context.Context, id string) error
	ArchiveMessage(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error

	CreateReview(ctx context.Context, review Review) error
	CreateMessage(ctx context.Context, msg Message) error
}

type HTTPClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	logger    *logrus.Logger
}

func NewClient(baseURL, authToken string, httpClient *http.Client) Client {
	return NewClientWithLogger(baseURL, authToken, httpClient, nil)
}

func NewClientWithLogger(baseURL, authToken string, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &HTTPClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		client:    httpClient,
		logger:    logger,
	}
}

func (c *HTTPClient) FetchReviews(ctx context.Context) (*ReviewBuckets, error) {
	var buckets ReviewBuckets
	if err := c.do(ctx, http.MethodGet, "/api/admin/reviews", nil, &buckets); err != nil {
		return nil, err
	}
	return &buckets, nil
}

func (c *HTTPClient) FetchMessages(ctx context.Context) ([]Message, error) {
	var list MessageList
	if err := c.do(ctx, http.MethodGet, "/api/admin/messages", nil, &list); err != nil {
		return nil, err
	}
	return list.Messages, nil
}

func (c *HTTPClient) ApproveReview(ctx context.Context, id string) error {
	return c.mutate(ctx, "/api/admin/reviews/approve", id)
}

func (c *HTTPClient) UnapproveReview(ctx context.Context, id string) error {
	return c.mutate(ctx, "/api/admin/reviews/unapprove", id)
}

func (c *HTTPClient) DeleteReview(ctx context.Context, id string) error {
	return c.mutate(ctx, "/api/admin/reviews/delete", id)
}

func (c *HTTPClient) MarkMessageRead(ctx context.Context, id string) error {
	return c.mutate(ctx, "/api/admin/messages/mark-read", id)
}

func (c *HTTPClient) ArchiveMessage(ctx context.Context, id string) error {
	return c.mutate(ctx, "/api/admin/messages/archive", id)
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, id string) error {
	return c.mutate(ctx, "/api/admin/messages/delete", id)
}

// CreateReview posts a visitor review through the public, unauthenticated
// endpoint.
func (c *HTTPClient) CreateReview(ctx context.Context, review Review) error {
	return c.do(ctx, http.MethodPost, "/api/reviews", review, nil)
}

// CreateMessage posts a contact message through the public, unauthenticated
// endpoint.
func (c *HTTPClient) CreateMessage(ctx context.Context, msg Message) error {
	return c.do(ctx, http.MethodPost, "/api/messages", msg, nil)
}

func (c *HTTPClient) mutate(ctx context.Context, path, id string) error {
	return c.do(ctx, http.MethodPost, path, mutationRequest{ID: id}, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
	}).Debug("Sending admin API request")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("admin API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
