package models

import "time"

type MessageStatus string

const (
	MessageStatusNew      MessageStatus = "new"
	MessageStatusRead     MessageStatus = "read"
	MessageStatusArchived MessageStatus = "archived"
)

// Message is a contact-form submission awaiting operator triage.
type Message struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customerId,omitempty"`
	Name       string        `json:"name"`
	Phone      string        `json:"phone"`
	Body       string        `json:"message"`
	Status     MessageStatus `json:"status"`
	CreatedAt  time.Time     `json:"created"`
}

// Customer groups submissions and uploaded photos by phone number.
type Customer struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created"`
}

// PhotoRecord links an uploaded garden photo to the customer who sent it.
type PhotoRecord struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	ObjectKey  string    `json:"objectKey"`
	CreatedAt  time.Time `json:"created"`
}
