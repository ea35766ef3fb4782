package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "bloomdesk/internal/errors"
	"bloomdesk/internal/middleware"
	"bloomdesk/internal/models"
	"bloomdesk/internal/privacy"
	"bloomdesk/internal/service"
	"bloomdesk/internal/versioning"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// photoUploader stores uploaded garden photos in object storage. It is nil
// when attachments are not configured.
type photoUploader interface {
	CheckLimits(fileCount int, sizeBytes int64) error
	UploadPhoto(ctx context.Context, customerID, fileName string, r io.Reader, size int64, contentType string) (string, error)
	MaxFiles() int
}

// photoStore records which stored object belongs to which customer.
type photoStore interface {
	SavePhotoRecord(ctx context.Context, customerID, objectKey string) error
}

type Server struct {
	cfg         *models.Config
	router      *mux.Router
	logger      *logrus.Logger
	moderation  service.ModerationService
	submissions service.SubmissionService
	uploader    photoUploader
	photos      photoStore
	server      *http.Server
}

func NewServer(cfg *models.Config, moderation service.ModerationService, submissions service.SubmissionService, uploader photoUploader, photos photoStore, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		router:      mux.NewRouter(),
		logger:      logger,
		moderation:  moderation,
		submissions: submissions,
		uploader:    uploader,
		photos:      photos,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))
	s.router.Use(versioning.Middleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	// Public submission endpoints
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/reviews", s.handleSubmitReview()).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.handleSubmitMessage()).Methods(http.MethodPost)

	// Admin endpoints behind token auth
	admin := s.router.PathPrefix("/api/admin").Subrouter()
	admin.Use(s.requireAdminToken)

	admin.HandleFunc("/reviews", s.handleListReviews()).Methods(http.MethodGet)
	admin.HandleFunc("/reviews/approve", s.handleMutation("approve review", s.moderation.ApproveReview)).Methods(http.MethodPost)
	admin.HandleFunc("/reviews/unapprove", s.handleMutation("unapprove review", s.moderation.UnapproveReview)).Methods(http.MethodPost)
	admin.HandleFunc("/reviews/delete", s.handleMutation("delete review", s.moderation.DeleteReview)).Methods(http.MethodPost)

	admin.HandleFunc("/messages", s.handleListMessages()).Methods(http.MethodGet)
	admin.HandleFunc("/messages/mark-read", s.handleMutation("mark message read", s.moderation.MarkMessageRead)).Methods(http.MethodPost)
	admin.HandleFunc("/messages/archive", s.handleMutation("archive message", s.moderation.ArchiveMessage)).Methods(http.MethodPost)
	admin.HandleFunc("/messages/delete", s.handleMutation("delete message", s.moderation.DeleteMessage)).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleListReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := s.moderation.Reviews(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, board)
	}
}

func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := s.moderation.Messages(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, board)
	}
}

// handleMutation serves all single-entity moderation actions: every endpoint
// takes {"id": "..."} and answers {"ok": true}.
func (s *Server) handleMutation(name string, op func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			s.writeError(w, r, apperrors.New(apperrors.ErrCodeValidationFailed, "missing entity id").
				WithUserMessage("A target id is required."))
			return
		}

		if err := op(r.Context(), req.ID); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"action": name,
				"id":     privacy.MaskEntityID(req.ID),
			}).Error("Moderation action failed")
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) handleSubmitReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.ReviewSubmission
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			s.writeError(w, r, apperrors.New(apperrors.ErrCodeValidationFailed, "malformed review payload").
				WithUserMessage("We could not read your review. Please try again."))
			return
		}

		review, err := s.submissions.SubmitReview(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, review)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeAuthorization:
		status = http.StatusUnauthorized
	case apperrors.ErrCodeValidationFailed:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeAttachmentUpload:
		status = http.StatusBadRequest
	}

	if status >= 500 {
		s.logger.WithError(err).WithField("url", r.URL.Path).Error("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":    false,
		"error": apperrors.GetUserMessage(err),
	})
}
