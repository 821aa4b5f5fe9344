package domain

import "time"

// Notification event types carried in broadcast payloads.
const (
	NotifyReminder     = "reminder"
	NotifyQuiz         = "quiz"
	NotifyTutorial     = "tutorial"
	NotifyAssignment   = "assignment"
	NotifyAnnouncement = "announcement"
	NotifySchedule     = "schedule_change"
)

// Notification is one in-app feed row. Broadcast writes one per enrollee.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	CourseID       string    `json:"course_id,omitempty" dynamodbav:"course_id"`
	Type           string    `json:"type" dynamodbav:"type"`
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Readed         int       `json:"readed" dynamodbav:"readed"` // legacy field name preserved
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// BroadcastRequest asks the gateway to notify every current enrollee of a
// course about an ad-hoc event. This path never consults the occurrence
// calculator.
type BroadcastRequest struct {
	CourseID string            `json:"course_id" validate:"required"`
	Type     string            `json:"type" validate:"required,oneof=quiz tutorial assignment announcement schedule_change"`
	Title    string            `json:"title" validate:"required,max=120"`
	Message  string            `json:"message" validate:"required,max=1000"`
	Data     map[string]string `json:"data,omitempty"`
}

// BroadcastResult reports what a broadcast actually did.
type BroadcastResult struct {
	NotificationsCreated int `json:"notifications_created"`
	PushesAttempted      int `json:"pushes_attempted"`
	EmailsSent           int `json:"emails_sent"`
	SmsSent              int `json:"sms_sent"`
}

// SentReminder is the dispatch dedup row, keyed by user+course+session so a
// (user, occurrence) pair is delivered at most once per session. Rows expire
// via DynamoDB TTL once the session is long past.
type SentReminder struct {
	DedupKey  string    `json:"dedup_key" dynamodbav:"dedup_key"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	CourseID  string    `json:"course_id" dynamodbav:"course_id"`
	SentAt    time.Time `json:"sent_at" dynamodbav:"sent_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // unix seconds, table TTL attribute
}
