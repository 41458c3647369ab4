package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/comercio-backend/api/controllers"
	"github.com/angelmondragon/comercio-backend/api/middleware"
	"github.com/angelmondragon/comercio-backend/internal/notifications"
	"github.com/angelmondragon/comercio-backend/internal/payments"
	"github.com/angelmondragon/comercio-backend/pkg/config"
	"github.com/angelmondragon/comercio-backend/pkg/db"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/metrics"
	"github.com/angelmondragon/comercio-backend/pkg/redis"
)

// NewRouter builds the API handler. redisClient, httpMetrics and
// metricsHandler may be nil; the Redis-backed middleware is skipped then.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	paymentsService payments.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	ready := map[string]controllers.Pinger{"database": dbP}
	if redisClient != nil {
		ready["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	writePolicy := middleware.NewRateLimitPolicy(
		"writes",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.UserLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.TenantContext(logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(writePolicy, redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.ListPayments(paymentsService, logg))
			r.Post("/", controllers.CreatePayment(paymentsService, logg))
			r.Get("/stats", controllers.PaymentStats(paymentsService, logg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetPayment(paymentsService, logg))
				r.Patch("/", controllers.UpdatePayment(paymentsService, logg))
				r.Patch("/status", controllers.UpdatePaymentStatus(paymentsService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePaymentManager(logg))
					r.Post("/refund", controllers.RefundPayment(paymentsService, logg))
					r.Delete("/", controllers.DeletePayment(paymentsService, logg))
				})
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/recent", controllers.RecentNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Patch("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Delete("/read", controllers.DeleteReadNotifications(notificationsService, logg))
			r.With(middleware.RequireRoles(logg, enums.MemberRoleOwner, enums.MemberRoleAdmin)).
				Post("/", controllers.CreateNotification(notificationsService, logg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetNotification(notificationsService, logg))
				r.Patch("/read", controllers.MarkNotificationRead(notificationsService, logg))
				r.Patch("/unread", controllers.MarkNotificationUnread(notificationsService, logg))
				r.Delete("/", controllers.DeleteNotification(notificationsService, logg))
			})
		})
	})

	return r
}
