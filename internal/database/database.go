package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"bloomdesk/internal/migrations"
	"bloomdesk/internal/models"
	"bloomdesk/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the persistent local store. It is the fallback backend for
// moderation when the remote API is unreachable and the durable record for
// every visitor submission.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// Validate database path to prevent directory traversal
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Review operations

func (d *Database) SaveReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (id, name, text, rating, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.ExecContext(ctx, query,
		review.ID, review.Name, review.Text, review.Rating, string(review.Status), review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	return nil
}

// ListReviews returns all reviews split into the pending and published buckets.
func (d *Database) ListReviews(ctx context.Context) (pending, published []models.Review, err error) {
	query := `
		SELECT id, name, text, rating, status, created_at
		FROM reviews
		ORDER BY created_at DESC
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var review models.Review
		var status string
		if err := rows.Scan(&review.ID, &review.Name, &review.Text, &review.Rating, &status, &review.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan review: %w", err)
		}
		review.Status = models.ReviewStatus(status)

		switch review.Status {
		case models.ReviewStatusPublished:
			published = append(published, review)
		default:
			pending = append(pending, review)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return pending, published, nil
}

// UpdateReviewStatus moves a review between the pending and published states.
// An unknown id is a no-op, not an error.
func (d *Database) UpdateReviewStatus(ctx context.Context, id string, status models.ReviewStatus) error {
	query := `
		UPDATE reviews
		SET status = ?
		WHERE id = ?
	`

	if _, err := d.db.ExecContext(ctx, query, string(status), id); err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}

	return nil
}

// DeleteReview removes a review. An unknown id is a no-op.
func (d *Database) DeleteReview(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return nil
}

// Message operations

func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	encryptedName, err := d.encryptor.EncryptIfEnabled(msg.Name)
	if err != nil {
		return fmt.Errorf("failed to encrypt name: %w", err)
	}

	encryptedPhone, err := d.encryptor.EncryptIfEnabled(msg.Phone)
	if err != nil {
		return fmt.Errorf("failed to encrypt phone: %w", err)
	}

	encryptedBody, err := d.encryptor.EncryptIfEnabled(msg.Body)
	if err != nil {
		return fmt.Errorf("failed to encrypt body: %w", err)
	}

	var customerID interface{}
	if msg.CustomerID != "" {
		customerID = msg.CustomerID
	}

	query := `
		INSERT INTO messages (id, customer_id, name, phone, body, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = d.db.ExecContext(ctx, query,
		msg.ID, customerID, encryptedName, encryptedPhone, encryptedBody, string(msg.Status), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (d *Database) ListMessages(ctx context.Context) ([]models.Message, error) {
	query := `
		SELECT id, customer_id, name, phone, body, status, created_at
		FROM messages
		ORDER BY created_at DESC
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var customerID sql.NullString
		var encryptedName, encryptedPhone, encryptedBody, status string

		if err := rows.Scan(&msg.ID, &customerID, &encryptedName, &encryptedPhone, &encryptedBody, &status, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Status = models.MessageStatus(status)
		msg.CustomerID = customerID.String

		msg.Name, err = d.encryptor.DecryptIfEnabled(encryptedName)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt name: %w", err)
		}

		msg.Phone, err = d.encryptor.DecryptIfEnabled(encryptedPhone)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt phone: %w", err)
		}

		msg.Body, err = d.encryptor.DecryptIfEnabled(encryptedBody)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt body: %w", err)
		}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// UpdateMessageStatus advances a message through the triage lifecycle.
// An unknown id is a no-op.
func (d *Database) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) error {
	query := `
		UPDATE messages
		SET status = ?
		WHERE id = ?
	`

	if _, err := d.db.ExecContext(ctx, query, string(status), id); err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}

	return nil
}

// MarkMessageRead moves a message to read. Marking an already-read message
// is a no-op, and archived messages stay archived.
func (d *Database) MarkMessageRead(ctx context.Context, id string) error {
	query := `
		UPDATE messages
		SET status = ?
		WHERE id = ? AND status != ?
	`

	if _, err := d.db.ExecContext(ctx, query,
		string(models.MessageStatusRead), id, string(models.MessageStatusArchived)); err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}

	return nil
}

// DeleteMessage removes a message. An unknown id is a no-op.
func (d *Database) DeleteMessage(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

// Customer operations

// GetOrCreateCustomer returns the id of the customer with the given phone
// number, creating the record when no match exists. Lookup uses deterministic
// encryption so equal phone numbers map to the same row.
func (d *Database) GetOrCreateCustomer(ctx context.Context, fullName, phone string) (string, error) {
	phoneLookup, err := d.encryptor.EncryptForLookupIfEnabled(phone)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt phone for lookup: %w", err)
	}

	var id string
	err = d.db.QueryRowContext(ctx, `SELECT id FROM customers WHERE phone_lookup = ?`, phoneLookup).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up customer: %w", err)
	}

	encryptedName, err := d.encryptor.EncryptIfEnabled(fullName)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt name: %w", err)
	}

	encryptedPhone, err := d.encryptor.EncryptIfEnabled(phone)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt phone: %w", err)
	}

	id = models.NewID()
	query := `
		INSERT INTO customers (id, full_name, phone, phone_lookup)
		VALUES (?, ?, ?, ?)
	`

	if _, err := d.db.ExecContext(ctx, query, id, encryptedName, encryptedPhone, phoneLookup); err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	return id, nil
}

// SavePhotoRecord links an uploaded photo object to its customer.
func (d *Database) SavePhotoRecord(ctx context.Context, customerID, objectKey string) error {
	query := `
		INSERT INTO garden_photos (id, customer_id, object_key)
		VALUES (?, ?, ?)
	`

	if _, err := d.db.ExecContext(ctx, query, models.NewID(), customerID, objectKey); err != nil {
		return fmt.Errorf("failed to save photo record: %w", err)
	}

	return nil
}
