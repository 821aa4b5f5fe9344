package domain

import "time"

// Weekday is a closed enum of weekday names as they appear in course
// recurrence definitions.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// ParseWeekday maps a weekday name to the enum. ok is false for anything
// outside the closed set.
func ParseWeekday(s string) (Weekday, bool) {
	switch Weekday(s) {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return Weekday(s), true
	}
	return "", false
}

// FromTime converts a time.Weekday into the enum.
func FromTime(w time.Weekday) Weekday {
	switch w {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// SessionOverride replaces the default session time (and optionally venue)
// on one weekday.
type SessionOverride struct {
	Start string `json:"start" dynamodbav:"start"`
	End   string `json:"end" dynamodbav:"end"`
	Venue string `json:"venue,omitempty" dynamodbav:"venue"`
}

// CourseRecurrence is the weekly session definition of one course. It is a
// read-only view owned by the course store; this service never writes it.
// Times are wall-clock strings in "15:04" form. A weekday with no override
// falls back to DefaultStart/DefaultEnd.
type CourseRecurrence struct {
	CourseID     string                      `json:"id" dynamodbav:"course_id"`
	Name         string                      `json:"name" dynamodbav:"name"`
	Days         []Weekday                   `json:"days" dynamodbav:"days"`
	DefaultStart string                      `json:"default_start" dynamodbav:"default_start"`
	DefaultEnd   string                      `json:"default_end" dynamodbav:"default_end"`
	Overrides    map[Weekday]SessionOverride `json:"overrides,omitempty" dynamodbav:"overrides"`
}

// HasDay reports whether the course meets on the given weekday.
func (c *CourseRecurrence) HasDay(d Weekday) bool {
	for _, day := range c.Days {
		if day == d {
			return true
		}
	}
	return false
}

// Enrollment links a user to a course. Only active enrollments are
// considered by the dispatch scan.
type Enrollment struct {
	EnrollmentID string    `json:"id" dynamodbav:"enrollment_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	CourseID     string    `json:"course_id" dynamodbav:"course_id"`
	Active       bool      `json:"active" dynamodbav:"active"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}

// ReminderOccurrence is one concrete future instance of a recurring course
// session. It is computed, never persisted server-side.
type ReminderOccurrence struct {
	CourseID     string
	CourseName   string
	SessionStart time.Time
	SessionEnd   time.Time
	Venue        string
}
