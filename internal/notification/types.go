package notification

import "time"

// Type is the delivery channel for a notification
type Type string

const (
	TypeEmail Type = "email"
	TypeSMS   Type = "sms"
)

// Priority orders notifications for retry and reporting
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is the delivery lifecycle state
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification represents an outbound message to a client or worker
type Notification struct {
	ID       string   `json:"id"`
	Type     Type     `json:"type"`
	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`

	RecipientName string `json:"recipient_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`

	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`

	SentAt       *time.Time `json:"sent_at,omitempty"`
	RetryCount   int        `json:"retry_count"`
	LastRetryAt  *time.Time `json:"last_retry_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats aggregates delivery outcomes since startup
type Stats struct {
	TotalSent    int64              `json:"total_sent"`
	TotalFailed  int64              `json:"total_failed"`
	ByType       map[Type]int64     `json:"by_type"`
	ByPriority   map[Priority]int64 `json:"by_priority"`
	DeliveryRate float64            `json:"delivery_rate"`
}
