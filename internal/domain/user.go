package domain

import "time"

// Roles carried in JWT claims. Staff can broadcast and read diagnostics.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

// Sound preferences a user can pick for reminders. The transport channel a
// delivery uses is derived from this exactly once per send.
const (
	SoundDefault = "default"
	SoundChime   = "chime"
	SoundSilent  = "silent"
)

// User is the read-only slice of the identity store this service consumes:
// display name for personalized messages, phone for the secondary channel,
// and the notification preferences that drive scheduling.
type User struct {
	UserID               string    `json:"id" dynamodbav:"user_id"`
	FirstName            string    `json:"first_name" dynamodbav:"first_name"`
	LastName             string    `json:"last_name" dynamodbav:"last_name"`
	Email                string    `json:"email" dynamodbav:"email"`
	Phone                *string   `json:"phone,omitempty" dynamodbav:"phone"`
	NotificationsEnabled bool      `json:"notifications_enabled" dynamodbav:"notifications_enabled"`
	LeadMinutes          int       `json:"lead_minutes" dynamodbav:"lead_minutes"`
	Sound                string    `json:"sound" dynamodbav:"sound"`
	Enable               bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt            time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt            time.Time `json:"updated" dynamodbav:"updated_at"`
}
