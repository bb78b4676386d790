package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tracksubs/tracksubs-backend/api/controllers"
	"github.com/tracksubs/tracksubs-backend/api/middleware"
	"github.com/tracksubs/tracksubs-backend/internal/auth"
	"github.com/tracksubs/tracksubs-backend/internal/export"
	"github.com/tracksubs/tracksubs-backend/internal/ledger"
	"github.com/tracksubs/tracksubs-backend/internal/paymentmethods"
	"github.com/tracksubs/tracksubs-backend/internal/services"
	"github.com/tracksubs/tracksubs-backend/internal/subscriptions"
	"github.com/tracksubs/tracksubs-backend/internal/users"
	"github.com/tracksubs/tracksubs-backend/internal/waitlist"
	"github.com/tracksubs/tracksubs-backend/pkg/auth/session"
	"github.com/tracksubs/tracksubs-backend/pkg/config"
	"github.com/tracksubs/tracksubs-backend/pkg/db"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
	"github.com/tracksubs/tracksubs-backend/pkg/redis"
)

// Services bundles everything the router exposes over HTTP.
type Services struct {
	Auth           auth.Service
	Users          users.Service
	Subscriptions  subscriptions.Service
	Ledger         ledger.Service
	PaymentMethods paymentmethods.Service
	Catalog        services.Service
	Waitlist       waitlist.Service
	Export         export.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api/v1/waitlist", func(r chi.Router) {
		r.With(middleware.Idempotency(redisClient, logg)).Post("/", controllers.WaitlistAdd(svcs.Waitlist, logg))
	})

	r.Route("/api/v1/services", func(r chi.Router) {
		r.Get("/", controllers.ServiceCatalogList(svcs.Catalog, logg))
		r.Get("/{serviceKey}", controllers.ServiceCatalogGet(svcs.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/me", func(r chi.Router) {
			r.Get("/", controllers.MeGet(svcs.Users, logg))
			r.Patch("/", controllers.MeUpdate(svcs.Users, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.SubscriptionList(svcs.Subscriptions, logg))
			r.Post("/", controllers.SubscriptionCreate(svcs.Subscriptions, logg))
			r.Route("/{subscriptionId}", func(r chi.Router) {
				r.Get("/", controllers.SubscriptionGet(svcs.Subscriptions, logg))
				r.Patch("/", controllers.SubscriptionUpdate(svcs.Subscriptions, logg))
				r.Delete("/", controllers.SubscriptionDelete(svcs.Subscriptions, logg))
				r.Put("/alert", controllers.SubscriptionSetAlert(svcs.Subscriptions, logg))
				r.Get("/payments", controllers.TransactionListBySubscription(svcs.Ledger, logg))
				r.Post("/payments", controllers.TransactionRecord(svcs.Ledger, logg))
			})
		})

		r.Get("/transactions", controllers.TransactionList(svcs.Ledger, logg))

		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", controllers.PaymentMethodList(svcs.PaymentMethods, logg))
			r.Post("/", controllers.PaymentMethodCreate(svcs.PaymentMethods, logg))
			r.Patch("/{paymentMethodId}", controllers.PaymentMethodRename(svcs.PaymentMethods, logg))
			r.Delete("/{paymentMethodId}", controllers.PaymentMethodDelete(svcs.PaymentMethods, logg))
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/subscriptions.csv", controllers.ExportSubscriptionsCSV(svcs.Export, logg))
			r.Get("/transactions.csv", controllers.ExportTransactionsCSV(svcs.Export, logg))
		})
	})

	return r
}
