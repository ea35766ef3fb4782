package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	apperrors "bloomdesk/internal/errors"
	"bloomdesk/internal/privacy"
	"bloomdesk/internal/service"

	"github.com/sirupsen/logrus"
)

const maxSubmissionMemory = 8 << 20 // parse buffer for multipart forms

// handleSubmitMessage accepts a contact message either as plain JSON or as a
// multipart form carrying garden photos alongside the message fields.
func (s *Server) handleSubmitMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

		if contentType != "multipart/form-data" {
			var in service.MessageSubmission
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				s.writeError(w, r, apperrors.New(apperrors.ErrCodeValidationFailed, "malformed message payload").
					WithUserMessage("We could not read your message. Please try again."))
				return
			}

			msg, err := s.submissions.SubmitMessage(r.Context(), in)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusCreated, msg)
			return
		}

		if err := r.ParseMultipartForm(maxSubmissionMemory); err != nil {
			s.writeError(w, r, apperrors.New(apperrors.ErrCodeValidationFailed, "malformed multipart form").
				WithUserMessage("We could not read your message. Please try again."))
			return
		}

		in := service.MessageSubmission{
			Name:  r.FormValue("name"),
			Phone: r.FormValue("phone"),
			Body:  r.FormValue("message"),
		}

		files := r.MultipartForm.File["photos"]
		if len(files) > 0 && s.uploader != nil {
			// The size limit is per file; only the count is checked for the
			// batch as a whole.
			if err := s.uploader.CheckLimits(len(files), 0); err != nil {
				s.writeError(w, r, apperrors.Wrap(err, apperrors.ErrCodeAttachmentUpload, "photo batch rejected").
					WithUserMessage(fmt.Sprintf("You can attach up to %d photos.", s.uploader.MaxFiles())))
				return
			}
			for _, fh := range files {
				if err := s.uploader.CheckLimits(1, fh.Size); err != nil {
					s.writeError(w, r, apperrors.Wrap(err, apperrors.ErrCodeAttachmentUpload, "photo upload rejected").
						WithUserMessage(fmt.Sprintf("%s is too large: %s", fh.Filename, err.Error())))
					return
				}
			}
		}

		msg, err := s.submissions.SubmitMessage(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		// Photos are stored after the message itself: a failed upload must not
		// lose the contact request.
		uploaded := s.storePhotos(r, msg.CustomerID, files)

		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":      msg.ID,
			"status":  msg.Status,
			"created": msg.CreatedAt,
			"photos":  uploaded,
		})
	}
}

func (s *Server) storePhotos(r *http.Request, customerID string, files []*multipart.FileHeader) int {
	if s.uploader == nil || len(files) == 0 {
		return 0
	}

	uploaded := 0
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.logger.WithError(err).Warn("Failed to open uploaded photo")
			continue
		}

		contentType := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			s.logger.WithField("content_type", contentType).Warn("Skipping non-image upload")
			_ = f.Close()
			continue
		}

		objectKey, err := s.uploader.UploadPhoto(r.Context(), customerID, fh.Filename, f, fh.Size, contentType)
		_ = f.Close()
		if err != nil {
			s.logger.WithError(err).WithField("customer", privacy.MaskEntityID(customerID)).
				Warn("Failed to store garden photo")
			continue
		}

		if err := s.photos.SavePhotoRecord(r.Context(), customerID, objectKey); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"customer": privacy.MaskEntityID(customerID),
				"object":   objectKey,
			}).Warn("Failed to record garden photo")
			continue
		}
		uploaded++
	}
	return uploaded
}
