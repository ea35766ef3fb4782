package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Notification is a single out-of-band operator notification.
type Notification struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client delivers operator notifications. Delivery is best-effort by
// contract; callers decide whether a failure matters.
type Client interface {
	Send(ctx context.Context, n Notification) error
}

type WebhookClient struct {
	webhookURL string
	client     *http.Client
	logger     *logrus.Logger
}

func NewClient(webhookURL string, httpClient *http.Client) *WebhookClient {
	return NewClientWithLogger(webhookURL, httpClient, nil)
}

func NewClientWithLogger(webhookURL string, httpClient *http.Client, logger *logrus.Logger) *WebhookClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &WebhookClient{
		webhookURL: strings.TrimSuffix(webhookURL, "/"),
		client:     httpClient,
		logger:     logger,
	}
}

func (c *WebhookClient) Send(ctx context.Context, n Notification) error {
	jsonData, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithField("subject", n.Subject).Debug("Sending operator notification")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notification webhook error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}
