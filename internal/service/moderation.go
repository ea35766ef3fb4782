package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloomdesk/internal/constants"
	apperrors "bloomdesk/internal/errors"
	"bloomdesk/internal/metrics"
	"bloomdesk/internal/models"
	"bloomdesk/internal/privacy"
	"bloomdesk/pkg/adminapi"
	"bloomdesk/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
)

// RemoteAPI is the hosted moderation backend. It is nil when the deployment
// runs purely on the local store.
type RemoteAPI interface {
	FetchReviews(ctx context.Context) (*adminapi.ReviewBuckets, error)
	FetchMessages(ctx context.Context) ([]adminapi.Message, error)
	ApproveReview(ctx context.Context, id string) error
	UnapproveReview(ctx context.Context, id string) error
	DeleteReview(ctx context.Context, id string) error
	MarkMessageRead(ctx context.Context, id string) error
	ArchiveMessage(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
	CreateReview(ctx context.Context, review adminapi.Review) error
	CreateMessage(ctx context.Context, msg adminapi.Message) error
}

// LocalStore is the persistent fallback backend.
type LocalStore interface {
	SaveReview(ctx context.Context, review *models.Review) error
	ListReviews(ctx context.Context) (pending, published []models.Review, err error)
	UpdateReviewStatus(ctx context.Context, id string, status models.ReviewStatus) error
	DeleteReview(ctx context.Context, id string) error

	SaveMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context) ([]models.Message, error)
	MarkMessageRead(ctx context.Context, id string) error
	UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) error
	DeleteMessage(ctx context.Context, id string) error

	GetOrCreateCustomer(ctx context.Context, fullName, phone string) (string, error)
}

// Backend names which backend actually served an operation.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// ReviewBoard is the admin view of all reviews, split by moderation state.
type ReviewBoard struct {
	Pending   []models.Review `json:"pending"`
	Published []models.Review `json:"published"`
	Source    Backend         `json:"source"`
}

// MessageBoard is the admin view of all contact messages.
type MessageBoard struct {
	Messages []models.Message `json:"messages"`
	Source   Backend          `json:"source"`
}

// ModerationService applies moderation actions to exactly one entity,
// choosing a backend per operation: remote first, the local store when the
// remote is unreachable. An authorization failure never falls back: the
// operator has to re-authenticate, not silently edit a local copy.
type ModerationService interface {
	Reviews(ctx context.Context) (*ReviewBoard, error)
	Messages(ctx context.Context) (*MessageBoard, error)
	ApproveReview(ctx context.Context, id string) error
	UnapproveReview(ctx context.Context, id string) error
	DeleteReview(ctx context.Context, id string) error
	MarkMessageRead(ctx context.Context, id string) error
	ArchiveMessage(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
}

type moderationService struct {
	logger  *logrus.Logger
	remote  RemoteAPI
	store   LocalStore
	breaker *circuitbreaker.Breaker
}

func NewModerationService(remote RemoteAPI, store LocalStore, logger *logrus.Logger) ModerationService {
	if logger == nil {
		logger = logrus.New()
	}
	s := &moderationService{
		logger: logger,
		remote: remote,
		store:  store,
	}
	if remote != nil {
		s.breaker = circuitbreaker.NewWithLogger("remote-moderation",
			constants.DefaultBreakerMaxFailures,
			time.Duration(constants.DefaultBreakerCooldownSec)*time.Second,
			logger)
	}
	return s
}

// callRemote routes a remote call through the circuit breaker. Credential
// rejections never trip the breaker; the remote is healthy, the token is not.
func (s *moderationService) callRemote(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.breaker.ExecuteWith(ctx, fn, func(err error) bool {
		return !errors.Is(err, adminapi.ErrUnauthorized)
	})
}

func (s *moderationService) Reviews(ctx context.Context) (*ReviewBoard, error) {
	if s.remote != nil {
		var buckets *adminapi.ReviewBuckets
		err := s.callRemote(ctx, func(ctx context.Context) error {
			var fetchErr error
			buckets, fetchErr = s.remote.FetchReviews(ctx)
			return fetchErr
		})
		if err == nil {
			board := &ReviewBoard{Source: BackendRemote}
			seen := make(map[string]bool)
			for _, w := range buckets.Pending {
				board.Pending = append(board.Pending, fromWireReview(w, models.ReviewStatusPending))
				seen[w.ID] = true
			}
			for _, w := range buckets.Published {
				if seen[w.ID] {
					continue
				}
				board.Published = append(board.Published, fromWireReview(w, models.ReviewStatusPublished))
			}
			return board, nil
		}
		if errors.Is(err, adminapi.ErrUnauthorized) {
			return nil, s.authorizationError(err, "fetch reviews")
		}
		s.fallback("fetch_reviews", "", err)
	}

	pending, published, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to list reviews locally")
	}
	return &ReviewBoard{Pending: pending, Published: published, Source: BackendLocal}, nil
}

func (s *moderationService) Messages(ctx context.Context) (*MessageBoard, error) {
	if s.remote != nil {
		var wire []adminapi.Message
		err := s.callRemote(ctx, func(ctx context.Context) error {
			var fetchErr error
			wire, fetchErr = s.remote.FetchMessages(ctx)
			return fetchErr
		})
		if err == nil {
			board := &MessageBoard{Source: BackendRemote}
			for _, w := range wire {
				board.Messages = append(board.Messages, fromWireMessage(w))
			}
			return board, nil
		}
		if errors.Is(err, adminapi.ErrUnauthorized) {
			return nil, s.authorizationError(err, "fetch messages")
		}
		s.fallback("fetch_messages", "", err)
	}

	messages, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to list messages locally")
	}
	return &MessageBoard{Messages: messages, Source: BackendLocal}, nil
}

func (s *moderationService) ApproveReview(ctx context.Context, id string) error {
	return s.mutate(ctx, "approve_review", id,
		s.remoteOp(s.remote, func(r RemoteAPI) mutationFunc { return r.ApproveReview }),
		func(ctx context.Context) error {
			return s.store.UpdateReviewStatus(ctx, id, models.ReviewStatusPublished)
		})
}

func (s *moderationService) UnapproveReview(ctx context.Context, id string) error {
	return s.mutate(ctx, "unapprove_review", id,
		s.remoteOp(s.remote, func(r RemoteAPI) mutationFunc { return r.UnapproveReview }),
		func(ctx context.Context) error {
			return s.store.UpdateReviewStatus(ctx, id, models.ReviewStatusPending)
		})
}

func (s *moderationService) DeleteReview(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_review", id,
		s.remoteOp(s.remote, func(r RemoteAPI) mutationFunc { return r.DeleteReview }),
		func(ctx context.Context) error {
			return s.store.DeleteReview(ctx, id)
		})
}

func (s *moderationService) MarkMessageRead(ctx context.Context, id string) error {
	return s.mutate(ctx, "mark_message_read", id,
		s.remoteOp(s.remote, func(r RemoteAPI) mutationFunc { return r.MarkMessageRead }),
		func(ctx context.Context) error {
			return s.store.MarkMessageRead(ctx, id)
		})
}

func (s *moderationService) ArchiveMessage(ctx context.Context, id string) error {
	return s.mutate(ctx, "archive_message", id,
		s.remoteOp(s.remote, func(r RemoteAPI) mutationFunc { return r.ArchiveMessage }),
		func(ctx context.Context) error {
			return s.store.UpdateMessageStatus(ctx, id, models.MessageStatusArchived)
		})
}

func (s *moderationService) DeleteMessage(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_message", id,
		s.remoteOp(s.remote, func(r RemoteAPI) mutationFunc { return r.DeleteMessage }),
		func(ctx context.Context) error {
			return s.store.DeleteMessage(ctx, id)
		})
}

type mutationFunc func(ctx context.Context, id string) error

// remoteOp resolves a remote mutation, or nil when no remote is configured.
func (s *moderationService) remoteOp(remote RemoteAPI, pick func(RemoteAPI) mutationFunc) mutationFunc {
	if remote == nil {
		return nil
	}
	return pick(remote)
}

// mutate enacts the backend policy for a single moderation action:
// remote first; 401 stops the operation outright; any other remote failure
// applies the same mutation against the local store.
func (s *moderationService) mutate(ctx context.Context, op, id string, remote mutationFunc, local func(ctx context.Context) error) error {
	if remote != nil {
		err := s.callRemote(ctx, func(ctx context.Context) error {
			return remote(ctx, id)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, adminapi.ErrUnauthorized) {
			return s.authorizationError(err, op)
		}
		s.fallback(op, id, err)
	}

	if err := local(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, fmt.Sprintf("failed to apply %s locally", op))
	}
	return nil
}

func (s *moderationService) authorizationError(err error, op string) error {
	return apperrors.Wrap(err, apperrors.ErrCodeAuthorization, fmt.Sprintf("remote rejected %s", op)).
		WithUserMessage("Your admin session has expired. Please sign in again.")
}

func (s *moderationService) fallback(op, id string, err error) {
	fields := logrus.Fields{"op": op}
	if id != "" {
		fields["id"] = privacy.MaskEntityID(id)
	}
	s.logger.WithError(err).WithFields(fields).Warn("Remote moderation API unavailable, falling back to local store")
	metrics.IncrementCounter("moderation_fallbacks_total", map[string]string{"op": op})
}

func fromWireReview(w adminapi.Review, status models.ReviewStatus) models.Review {
	return models.Review{
		ID:        w.ID,
		Name:      w.Name,
		Text:      w.Text,
		Rating:    w.Rating,
		Status:    status,
		CreatedAt: w.Created,
	}
}

func fromWireMessage(w adminapi.Message) models.Message {
	return models.Message{
		ID:        w.ID,
		Name:      w.Name,
		Phone:     w.Phone,
		Body:      w.Message,
		Status:    models.MessageStatus(w.Status),
		CreatedAt: w.Created,
	}
}
