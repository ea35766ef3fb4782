package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bloomdesk/internal/migrations"
	"bloomdesk/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	t.Setenv("BLOOMDESK_ENABLE_ENCRYPTION", "true")
	t.Setenv("BLOOMDESK_ENCRYPTION_SECRET", "this-is-a-very-long-test-secret-key-for-database-testing")

	tmpDir := t.TempDir()

	originalMigrationsDir := migrations.MigrationsDir
	migrations.MigrationsDir = filepath.Join("..", "..", "scripts", "migrations")
	t.Cleanup(func() { migrations.MigrationsDir = originalMigrationsDir })

	db, err := New(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func testReview(status models.ReviewStatus) *models.Review {
	return &models.Review{
		ID:        models.NewID(),
		Name:      "Maria",
		Text:      "Great service",
		Rating:    5,
		Status:    status,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func testMessage() *models.Message {
	return &models.Message{
		ID:        models.NewID(),
		Name:      "Nikos",
		Phone:     "+306941234567",
		Body:      "Need a quote",
		Status:    models.MessageStatusNew,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestNewDatabaseInvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("data/../../outside.db")
	assert.Error(t, err)
}

func TestSaveAndListReviews(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rev := testReview(models.ReviewStatusPending)
	require.NoError(t, db.SaveReview(ctx, rev))

	pending, published, err := db.ListReviews(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Empty(t, published)

	got := pending[0]
	assert.Equal(t, rev.ID, got.ID)
	assert.Equal(t, "Maria", got.Name)
	assert.Equal(t, "Great service", got.Text)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, models.ReviewStatusPending, got.Status)
}

func TestUpdateReviewStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rev := testReview(models.ReviewStatusPending)
	require.NoError(t, db.SaveReview(ctx, rev))

	require.NoError(t, db.UpdateReviewStatus(ctx, rev.ID, models.ReviewStatusPublished))

	pending, published, err := db.ListReviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	require.Len(t, published, 1)
	assert.Equal(t, rev.ID, published[0].ID)

	// Fields survive the transition untouched.
	assert.Equal(t, rev.Name, published[0].Name)
	assert.Equal(t, rev.Text, published[0].Text)
	assert.Equal(t, rev.Rating, published[0].Rating)

	// Back to pending via unapprove.
	require.NoError(t, db.UpdateReviewStatus(ctx, rev.ID, models.ReviewStatusPending))
	pending, published, err = db.ListReviews(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Empty(t, published)
}

func TestUpdateReviewStatusUnknownIDIsNoop(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpdateReviewStatus(ctx, "does-not-exist", models.ReviewStatusPublished))

	pending, published, err := db.ListReviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, published)
}

func TestDeleteReview(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rev := testReview(models.ReviewStatusPending)
	require.NoError(t, db.SaveReview(ctx, rev))
	require.NoError(t, db.DeleteReview(ctx, rev.ID))

	pending, published, err := db.ListReviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, published)

	// Deleting again is a no-op.
	require.NoError(t, db.DeleteReview(ctx, rev.ID))
}

func TestSaveAndListMessages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage()
	require.NoError(t, db.SaveMessage(ctx, msg))

	messages, err := db.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	got := messages[0]
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, "Nikos", got.Name)
	assert.Equal(t, "+306941234567", got.Phone)
	assert.Equal(t, "Need a quote", got.Body)
	assert.Equal(t, models.MessageStatusNew, got.Status)
}

func TestMessagePIIIsEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage()
	require.NoError(t, db.SaveMessage(ctx, msg))

	var storedName, storedPhone, storedBody string
	err := db.db.QueryRowContext(ctx, `SELECT name, phone, body FROM messages WHERE id = ?`, msg.ID).
		Scan(&storedName, &storedPhone, &storedBody)
	require.NoError(t, err)

	assert.NotEqual(t, msg.Name, storedName)
	assert.NotEqual(t, msg.Phone, storedPhone)
	assert.NotEqual(t, msg.Body, storedBody)
}

func TestUpdateMessageStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage()
	require.NoError(t, db.SaveMessage(ctx, msg))

	require.NoError(t, db.UpdateMessageStatus(ctx, msg.ID, models.MessageStatusRead))

	// mark-read is idempotent
	require.NoError(t, db.UpdateMessageStatus(ctx, msg.ID, models.MessageStatusRead))

	messages, err := db.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.MessageStatusRead, messages[0].Status)

	require.NoError(t, db.UpdateMessageStatus(ctx, msg.ID, models.MessageStatusArchived))
	messages, err = db.ListMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusArchived, messages[0].Status)

	// Unknown id is a no-op.
	require.NoError(t, db.UpdateMessageStatus(ctx, "missing", models.MessageStatusRead))
}

func TestMarkMessageRead(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage()
	require.NoError(t, db.SaveMessage(ctx, msg))

	require.NoError(t, db.MarkMessageRead(ctx, msg.ID))
	require.NoError(t, db.MarkMessageRead(ctx, msg.ID))

	messages, err := db.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.MessageStatusRead, messages[0].Status)

	// Archived messages stay archived.
	require.NoError(t, db.UpdateMessageStatus(ctx, msg.ID, models.MessageStatusArchived))
	require.NoError(t, db.MarkMessageRead(ctx, msg.ID))

	messages, err = db.ListMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusArchived, messages[0].Status)

	require.NoError(t, db.MarkMessageRead(ctx, "missing"))
}

func TestDeleteMessage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage()
	require.NoError(t, db.SaveMessage(ctx, msg))
	require.NoError(t, db.DeleteMessage(ctx, msg.ID))

	messages, err := db.ListMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestGetOrCreateCustomer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.GetOrCreateCustomer(ctx, "Nikos", "+306941234567")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Same phone resolves to the same customer even with a different name.
	second, err := db.GetOrCreateCustomer(ctx, "Nikos P.", "+306941234567")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := db.GetOrCreateCustomer(ctx, "Maria", "+306900000001")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestSavePhotoRecord(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customerID, err := db.GetOrCreateCustomer(ctx, "Nikos", "+306941234567")
	require.NoError(t, err)

	require.NoError(t, db.SavePhotoRecord(ctx, customerID, customerID+"/1712000000_garden.jpg"))

	var count int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM garden_photos WHERE customer_id = ?`, customerID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestEncryptionDisabledStoresPlaintext(t *testing.T) {
	t.Setenv("BLOOMDESK_ENABLE_ENCRYPTION", "false")
	t.Setenv("BLOOMDESK_ENCRYPTION_SECRET", "")

	tmpDir := t.TempDir()
	originalMigrationsDir := migrations.MigrationsDir
	migrations.MigrationsDir = filepath.Join("..", "..", "scripts", "migrations")
	t.Cleanup(func() { migrations.MigrationsDir = originalMigrationsDir })

	db, err := New(filepath.Join(tmpDir, "plain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	msg := testMessage()
	require.NoError(t, db.SaveMessage(ctx, msg))

	var storedPhone string
	require.NoError(t, db.db.QueryRowContext(ctx, `SELECT phone FROM messages WHERE id = ?`, msg.ID).Scan(&storedPhone))
	assert.Equal(t, msg.Phone, storedPhone)
}
