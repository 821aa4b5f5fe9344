package http

import (
	"net/http"

	"github.com/course-remind/internal/application/dispatch"
	"github.com/course-remind/internal/application/notification"
	"github.com/course-remind/internal/application/registry"
	"github.com/course-remind/internal/application/sms"
	"github.com/course-remind/internal/config"
	"github.com/course-remind/internal/domain"
	"github.com/course-remind/internal/transport/http/handler"
	appmiddleware "github.com/course-remind/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router and the services behind it. The
// returned dispatch service is shared with the background worker so manual
// and scheduled scans go through the same dedup path.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, dispatch.Service) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to write-heavy endpoints.
	registerRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	registrySvc := registry.NewService(deps.DeviceRepo, deps.PushSender, nil)
	smsSvc := sms.NewService(deps.UserRepo, deps.SmsLogRepo, deps.SMSSender, nil, cfg.SMSWeeklyLimit)
	dispatchSvc := dispatch.NewService(dispatch.Deps{
		Enrollments:      deps.EnrollmentRepo,
		Courses:          deps.CourseRepo,
		Users:            deps.UserRepo,
		Devices:          registrySvc,
		Sent:             deps.SentReminderRepo,
		Notifications:    deps.NotificationRepo,
		Pusher:           deps.PushSender,
		Mailer:           deps.Mailer,
		SMS:              smsSvc,
		HorizonDays:      cfg.HorizonDays,
		ChunkSize:        cfg.PushChunkSize,
		Workers:          cfg.ScanWorkers,
		PublishPerSecond: cfg.PushPerSecond,
	})
	notifSvc := notification.NewService(deps.NotificationRepo)

	healthH := handler.NewHealthHandler()
	deviceH := handler.NewDeviceHandler(registrySvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	courseH := handler.NewCourseHandler(dispatchSvc)
	dispatchH := handler.NewDispatchHandler(dispatchSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(registerRL.Limit).Post("/devices", deviceH.Register)
			r.Get("/devices", deviceH.List)
			r.Delete("/devices", deviceH.DeactivateAll)
			r.Delete("/devices/{token}", deviceH.Deactivate)

			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// Staff-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleStaff))

				r.Post("/courses/{id}/broadcast", courseH.Broadcast)
				r.Get("/courses/{id}/reminder-report", courseH.ReminderReport)
				r.Post("/dispatch/scan", dispatchH.Scan)
			})
		})
	})

	return r, dispatchSvc
}
