package http

import (
	"github.com/course-remind/internal/infrastructure/dynamo"
	jwtinfra "github.com/course-remind/internal/infrastructure/jwt"
	"github.com/course-remind/internal/infrastructure/smtp"
	"github.com/course-remind/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	CourseRepo       *dynamo.CourseRepo
	EnrollmentRepo   *dynamo.EnrollmentRepo
	DeviceRepo       *dynamo.DeviceRepo
	NotificationRepo *dynamo.NotificationRepo
	SentReminderRepo *dynamo.SentReminderRepo
	SmsLogRepo       *dynamo.SmsLogRepo
	PushSender       sns.PushSender
	SMSSender        sns.SMSSender
	Mailer           smtp.Mailer
	JWTProvider      *jwtinfra.Provider
}
