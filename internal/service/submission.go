package service

import (
	"context"
	"time"

	apperrors "bloomdesk/internal/errors"
	"bloomdesk/internal/metrics"
	"bloomdesk/internal/models"
	"bloomdesk/internal/privacy"
	"bloomdesk/internal/validation"
	"bloomdesk/pkg/adminapi"

	"github.com/sirupsen/logrus"
)

// Notifier alerts the site operator about new visitor submissions.
type Notifier interface {
	ReviewSubmitted(ctx context.Context, review models.Review) error
	MessageSubmitted(ctx context.Context, msg models.Message) error
}

// ReviewSubmission is a visitor-supplied review before validation.
type ReviewSubmission struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// MessageSubmission is a visitor-supplied contact message before validation.
type MessageSubmission struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Body  string `json:"message"`
}

// SubmissionService accepts visitor submissions. The local store is the
// authoritative write; the remote backend and the operator notification are
// both best-effort and never fail the submission.
type SubmissionService interface {
	SubmitReview(ctx context.Context, in ReviewSubmission) (*models.Review, error)
	SubmitMessage(ctx context.Context, in MessageSubmission) (*models.Message, error)
}

type submissionService struct {
	logger   *logrus.Logger
	remote   RemoteAPI
	store    LocalStore
	notifier Notifier
	now      func() time.Time
}

func NewSubmissionService(remote RemoteAPI, store LocalStore, notifier Notifier, logger *logrus.Logger) SubmissionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &submissionService{
		logger:   logger,
		remote:   remote,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *submissionService) SubmitReview(ctx context.Context, in ReviewSubmission) (*models.Review, error) {
	name, err := validation.SubmitterName(in.Name)
	if err != nil {
		return nil, invalidSubmission(err, "Please tell us your name.")
	}
	text, err := validation.ReviewText(in.Text)
	if err != nil {
		return nil, invalidSubmission(err, "Please write a few words for your review.")
	}

	review := &models.Review{
		ID:        models.NewID(),
		Name:      name,
		Text:      text,
		Rating:    validation.NormalizeRating(in.Rating),
		Status:    models.ReviewStatusPending,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.SaveReview(ctx, review); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to save review")
	}
	metrics.IncrementCounter("submissions_total", map[string]string{"kind": "review"})
	s.logger.WithFields(logrus.Fields{
		"id":     privacy.MaskEntityID(review.ID),
		"name":   privacy.MaskName(review.Name),
		"rating": review.Rating,
	}).Info("Stored review for moderation")

	if s.remote != nil {
		if err := s.remote.CreateReview(ctx, toWireReview(review)); err != nil {
			s.logger.WithError(err).WithField("id", privacy.MaskEntityID(review.ID)).
				Warn("Failed to forward review to remote backend")
		}
	}
	s.notifyReview(ctx, review)

	return review, nil
}

func (s *submissionService) SubmitMessage(ctx context.Context, in MessageSubmission) (*models.Message, error) {
	name, err := validation.SubmitterName(in.Name)
	if err != nil {
		return nil, invalidSubmission(err, "Please tell us your name.")
	}
	phone, err := validation.Phone(in.Phone)
	if err != nil {
		return nil, invalidSubmission(err, "Please provide a phone number we can reach you at.")
	}
	body, err := validation.MessageBody(in.Body)
	if err != nil {
		return nil, invalidSubmission(err, "Please write a message.")
	}

	customerID, err := s.store.GetOrCreateCustomer(ctx, name, phone)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to resolve customer")
	}

	msg := &models.Message{
		ID:         models.NewID(),
		CustomerID: customerID,
		Name:       name,
		Phone:      phone,
		Body:       body,
		Status:     models.MessageStatusNew,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to save message")
	}
	metrics.IncrementCounter("submissions_total", map[string]string{"kind": "message"})
	s.logger.WithFields(logrus.Fields{
		"id":       privacy.MaskEntityID(msg.ID),
		"customer": privacy.MaskEntityID(msg.CustomerID),
		"name":     privacy.MaskName(msg.Name),
		"phone":    privacy.MaskPhoneNumber(msg.Phone),
	}).Info("Stored contact message")

	if s.remote != nil {
		if err := s.remote.CreateMessage(ctx, toWireMessage(msg)); err != nil {
			s.logger.WithError(err).WithField("id", privacy.MaskEntityID(msg.ID)).
				Warn("Failed to forward message to remote backend")
		}
	}
	s.notifyMessage(ctx, msg)

	return msg, nil
}

func (s *submissionService) notifyReview(ctx context.Context, review *models.Review) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ReviewSubmitted(ctx, *review); err != nil {
		s.logger.WithError(err).Warn("Failed to notify operator about new review")
	}
}

func (s *submissionService) notifyMessage(ctx context.Context, msg *models.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.MessageSubmitted(ctx, *msg); err != nil {
		s.logger.WithError(err).Warn("Failed to notify operator about new message")
	}
}

func invalidSubmission(err error, userMessage string) error {
	return apperrors.New(apperrors.ErrCodeValidationFailed, err.Error()).WithUserMessage(userMessage)
}

func toWireReview(r *models.Review) adminapi.Review {
	return adminapi.Review{
		ID:      r.ID,
		Name:    r.Name,
		Text:    r.Text,
		Rating:  r.Rating,
		Created: r.CreatedAt,
	}
}

func toWireMessage(m *models.Message) adminapi.Message {
	return adminapi.Message{
		ID:      m.ID,
		Name:    m.Name,
		Phone:   m.Phone,
		Message: m.Body,
		Status:  string(m.Status),
		Created: m.CreatedAt,
	}
}
