package service

import (
	"context"
	"fmt"
	"time"

	"bloomdesk/internal/models"
	"bloomdesk/pkg/notify"

	"github.com/sirupsen/logrus"
)

type operatorNotifier struct {
	sender   notify.Client
	operator string
	logger   *logrus.Logger
}

// NewOperatorNotifier builds a Notifier that sends each submission to the
// configured operator address through the notification webhook.
func NewOperatorNotifier(sender notify.Client, operatorAddress string, logger *logrus.Logger) Notifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &operatorNotifier{
		sender:   sender,
		operator: operatorAddress,
		logger:   logger,
	}
}

func (n *operatorNotifier) ReviewSubmitted(ctx context.Context, review models.Review) error {
	body := fmt.Sprintf("Rating: %d/5\n\n%s\n\nSubmitted %s (ref %s)",
		review.Rating, review.Text, review.CreatedAt.Format(time.RFC1123), review.ID)

	return n.sender.Send(ctx, notify.Notification{
		To:      n.operator,
		Subject: fmt.Sprintf("New review from %s awaiting moderation", review.Name),
		Body:    body,
	})
}

func (n *operatorNotifier) MessageSubmitted(ctx context.Context, msg models.Message) error {
	body := fmt.Sprintf("Phone: %s\n\n%s\n\nSubmitted %s (ref %s)",
		msg.Phone, msg.Body, msg.CreatedAt.Format(time.RFC1123), msg.ID)

	return n.sender.Send(ctx, notify.Notification{
		To:      n.operator,
		Subject: fmt.Sprintf("New message from %s", msg.Name),
		Body:    body,
	})
}
