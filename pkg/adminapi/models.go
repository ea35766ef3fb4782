package adminapi

import "time"

// Review is the wire representation of a review. Moderation state is not a
// field on the wire; it is carried by which bucket the review arrives in.
type Review struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Text    string    `json:"text"`
	Rating  int       `json:"rating"`
	Created time.Time `json:"created"`
}

// Message is the wire representation of a contact message.
type Message struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone"`
	Message string    `json:"message"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}

// ReviewBuckets is the response of the admin reviews fetch: the full current
// collections, split by moderation state.
type ReviewBuckets struct {
	Pending   []Review `json:"pending"`
	Published []Review `json:"published"`
}

// MessageList is the response of the admin messages fetch.
type MessageList struct {
	Messages []Message `json:"messages"`
}

type mutationRequest struct {
	ID string `json:"id"`
}

type ackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
