package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"bloomdesk/internal/attachments"
	apperrors "bloomdesk/internal/errors"
	"bloomdesk/internal/models"
	"bloomdesk/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModeration struct {
	reviews  *service.ReviewBoard
	messages *service.MessageBoard
	err      error
	calls    []string
}

func (f *fakeModeration) Reviews(ctx context.Context) (*service.ReviewBoard, error) {
	f.calls = append(f.calls, "reviews")
	return f.reviews, f.err
}

func (f *fakeModeration) Messages(ctx context.Context) (*service.MessageBoard, error) {
	f.calls = append(f.calls, "messages")
	return f.messages, f.err
}

func (f *fakeModeration) record(op, id string) error {
	f.calls = append(f.calls, op+":"+id)
	return f.err
}

func (f *fakeModeration) ApproveReview(ctx context.Context, id string) error {
	return f.record("approve", id)
}

func (f *fakeModeration) UnapproveReview(ctx context.Context, id string) error {
	return f.record("unapprove", id)
}

func (f *fakeModeration) DeleteReview(ctx context.Context, id string) error {
	return f.record("delete-review", id)
}

func (f *fakeModeration) MarkMessageRead(ctx context.Context, id string) error {
	return f.record("read", id)
}

func (f *fakeModeration) ArchiveMessage(ctx context.Context, id string) error {
	return f.record("archive", id)
}

func (f *fakeModeration) DeleteMessage(ctx context.Context, id string) error {
	return f.record("delete-message", id)
}

type fakeSubmissions struct {
	review       *models.Review
	message      *models.Message
	err          error
	messageCalls int
}

func (f *fakeSubmissions) SubmitReview(ctx context.Context, in service.ReviewSubmission) (*models.Review, error) {
	return f.review, f.err
}

func (f *fakeSubmissions) SubmitMessage(ctx context.Context, in service.MessageSubmission) (*models.Message, error) {
	f.messageCalls++
	return f.message, f.err
}

type fakeUploader struct {
	maxFiles     int
	maxSizeBytes int64
	uploaded     []string
}

func (f *fakeUploader) CheckLimits(fileCount int, sizeBytes int64) error {
	if f.maxFiles > 0 && fileCount > f.maxFiles {
		return attachments.ErrTooManyFiles
	}
	if f.maxSizeBytes > 0 && sizeBytes > f.maxSizeBytes {
		return attachments.ErrFileTooLarge
	}
	return nil
}

func (f *fakeUploader) UploadPhoto(ctx context.Context, customerID, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	key := customerID + "/" + fileName
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeUploader) MaxFiles() int {
	if f.maxFiles > 0 {
		return f.maxFiles
	}
	return 12
}

type fakePhotoStore struct {
	records []string
}

func (f *fakePhotoStore) SavePhotoRecord(ctx context.Context, customerID, objectKey string) error {
	f.records = append(f.records, objectKey)
	return nil
}

func newTestServer(t *testing.T, moderation *fakeModeration, submissions *fakeSubmissions) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &models.Config{}
	cfg.Admin.TokenSecret = "test-admin-secret"

	return NewServer(cfg, moderation, submissions, nil, &fakePhotoStore{}, logger)
}

func adminRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer test-admin-secret")
	return req
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeModeration{}, &fakeSubmissions{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeModeration{}, &fakeSubmissions{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "counters")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, &fakeModeration{}, &fakeSubmissions{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/reviews", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/reviews", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListReviews(t *testing.T) {
	moderation := &fakeModeration{
		reviews: &service.ReviewBoard{
			Pending:   []models.Review{{ID: "r1", Name: "Dana", Status: models.ReviewStatusPending}},
			Published: []models.Review{{ID: "r2", Name: "Ed", Status: models.ReviewStatusPublished}},
			Source:    service.BackendRemote,
		},
	}
	s := newTestServer(t, moderation, &fakeSubmissions{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, adminRequest(http.MethodGet, "/api/admin/reviews", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body service.ReviewBoard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Pending, 1)
	assert.Len(t, body.Published, 1)
	assert.Equal(t, service.BackendRemote, body.Source)
}

func TestListMessages(t *testing.T) {
	moderation := &fakeModeration{
		messages: &service.MessageBoard{
			Messages: []models.Message{{ID: "m1", Status: models.MessageStatusNew}},
			Source:   service.BackendLocal,
		},
	}
	s := newTestServer(t, moderation, &fakeSubmissions{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, adminRequest(http.MethodGet, "/api/admin/messages", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"m1"`)
}

func TestModerationEndpoints(t *testing.T) {
	tests := []struct {
		path string
		call string
	}{
		{"/api/admin/reviews/approve", "approve:id-1"},
		{"/api/admin/reviews/unapprove", "unapprove:id-1"},
		{"/api/admin/reviews/delete", "delete-review:id-1"},
		{"/api/admin/messages/mark-read", "read:id-1"},
		{"/api/admin/messages/archive", "archive:id-1"},
		{"/api/admin/messages/delete", "delete-message:id-1"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			moderation := &fakeModeration{}
			s := newTestServer(t, moderation, &fakeSubmissions{})

			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, adminRequest(http.MethodPost, tt.path, strings.NewReader(`{"id":"id-1"}`)))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"ok":true`)
			assert.Equal(t, []string{tt.call}, moderation.calls)
		})
	}
}

func TestModerationEndpointRequiresID(t *testing.T) {
	moderation := &fakeModeration{}
	s := newTestServer(t, moderation, &fakeSubmissions{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/admin/reviews/approve", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, moderation.calls)
}

func TestExpiredRemoteSessionMapsTo401(t *testing.T) {
	moderation := &fakeModeration{
		err: apperrors.New(apperrors.ErrCodeAuthorization, "remote rejected approve").
			WithUserMessage("Your admin session has expired. Please sign in again."),
	}
	s := newTestServer(t, moderation, &fakeSubmissions{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/admin/reviews/approve", strings.NewReader(`{"id":"r1"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "sign in again")
}

func TestSubmitReview(t *testing.T) {
	submissions := &fakeSubmissions{
		review: &models.Review{ID: "r1", Name: "Dana", Rating: 5, Status: models.ReviewStatusPending, CreatedAt: time.Now()},
	}
	s := newTestServer(t, &fakeModeration{}, submissions)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reviews",
		strings.NewReader(`{"name":"Dana","text":"Great work","rating":5}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"r1"`)
}

func TestSubmitReviewValidationError(t *testing.T) {
	submissions := &fakeSubmissions{
		err: apperrors.New(apperrors.ErrCodeValidationFailed, "name is required").
			WithUserMessage("Please tell us your name."),
	}
	s := newTestServer(t, &fakeModeration{}, submissions)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reviews",
		strings.NewReader(`{"text":"hello"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please tell us your name.")
}

func TestSubmitMessageJSON(t *testing.T) {
	submissions := &fakeSubmissions{
		message: &models.Message{ID: "m1", Status: models.MessageStatusNew},
	}
	s := newTestServer(t, &fakeModeration{}, submissions)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages",
		strings.NewReader(`{"name":"Dana","phone":"+15551234567","message":"Quote please"}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"m1"`)
}

func TestSubmitMessageWithPhotos(t *testing.T) {
	submissions := &fakeSubmissions{
		message: &models.Message{ID: "m1", CustomerID: "cust-1", Status: models.MessageStatusNew},
	}
	uploader := &fakeUploader{}
	photos := &fakePhotoStore{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &models.Config{}
	cfg.Admin.TokenSecret = "test-admin-secret"
	s := NewServer(cfg, &fakeModeration{}, submissions, uploader, photos, logger)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Dana"))
	require.NoError(t, form.WriteField("phone", "+15551234567"))
	require.NoError(t, form.WriteField("message", "See attached"))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="photos"; filename="bed.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := form.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"cust-1/bed.jpg"}, uploader.uploaded)
	assert.Equal(t, []string{"cust-1/bed.jpg"}, photos.records)
	assert.Contains(t, rec.Body.String(), `"photos":1`)
}

func photoMessageForm(t *testing.T, photoSizes ...int) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Dana"))
	require.NoError(t, form.WriteField("phone", "+15551234567"))
	require.NoError(t, form.WriteField("message", "See attached"))

	for i, size := range photoSizes {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename="bed-%d.jpg"`, i))
		header.Set("Content-Type", "image/jpeg")
		part, err := form.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("j"), size))
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())

	return &buf, form.FormDataContentType()
}

func TestSubmitMessagePhotoSizeLimitIsPerFile(t *testing.T) {
	submissions := &fakeSubmissions{
		message: &models.Message{ID: "m1", CustomerID: "cust-1", Status: models.MessageStatusNew},
	}
	uploader := &fakeUploader{maxSizeBytes: 8}
	photos := &fakePhotoStore{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &models.Config{}
	cfg.Admin.TokenSecret = "test-admin-secret"
	s := NewServer(cfg, &fakeModeration{}, submissions, uploader, photos, logger)

	// Two photos under the per-file limit whose combined size exceeds it.
	body, contentType := photoMessageForm(t, 6, 6)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	req.Header.Set("Content-Type", contentType)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, submissions.messageCalls)
	assert.Len(t, uploader.uploaded, 2)
	assert.Contains(t, rec.Body.String(), `"photos":2`)
}

func TestSubmitMessageOversizedPhotoRejected(t *testing.T) {
	submissions := &fakeSubmissions{
		message: &models.Message{ID: "m1", CustomerID: "cust-1", Status: models.MessageStatusNew},
	}
	uploader := &fakeUploader{maxSizeBytes: 8}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &models.Config{}
	cfg.Admin.TokenSecret = "test-admin-secret"
	s := NewServer(cfg, &fakeModeration{}, submissions, uploader, &fakePhotoStore{}, logger)

	body, contentType := photoMessageForm(t, 9)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	req.Header.Set("Content-Type", contentType)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bed-0.jpg is too large")
	assert.Equal(t, 0, submissions.messageCalls)
	assert.Empty(t, uploader.uploaded)
}

func TestSubmitMessageTooManyPhotosRejected(t *testing.T) {
	submissions := &fakeSubmissions{
		message: &models.Message{ID: "m1", CustomerID: "cust-1", Status: models.MessageStatusNew},
	}
	uploader := &fakeUploader{maxFiles: 2}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &models.Config{}
	cfg.Admin.TokenSecret = "test-admin-secret"
	s := NewServer(cfg, &fakeModeration{}, submissions, uploader, &fakePhotoStore{}, logger)

	body, contentType := photoMessageForm(t, 4, 4, 4)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	req.Header.Set("Content-Type", contentType)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "up to 2 photos")
	assert.Equal(t, 0, submissions.messageCalls)
	assert.Empty(t, uploader.uploaded)
}

func TestAdminRoutesOpenWithoutSecretInDev(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	moderation := &fakeModeration{reviews: &service.ReviewBoard{Source: service.BackendLocal}}

	s := NewServer(&models.Config{}, moderation, &fakeSubmissions{}, nil, &fakePhotoStore{}, logger)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/reviews", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
