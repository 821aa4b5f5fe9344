package domain

import "time"

// SmsSendLog is one append-only record of a secondary-channel send. Rows are
// only ever counted, never mutated.
type SmsSendLog struct {
	SmsID       string    `json:"id" dynamodbav:"sms_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	PhoneNumber string    `json:"phone_number" dynamodbav:"phone_number"`
	Message     string    `json:"message" dynamodbav:"message"`
	Type        string    `json:"type" dynamodbav:"type"`
	CourseID    string    `json:"course_id,omitempty" dynamodbav:"course_id"`
	SentAt      time.Time `json:"sent_at" dynamodbav:"sent_at"`
}
