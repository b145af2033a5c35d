package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/character-matters/internal/config"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/auth/profile"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/categories"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/ebooks"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/health"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/subscription/current"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/subscription/history"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/subscription/paystackcheckout"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/subscription/stripecheckout"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/users"
	"github.com/magabrotheeeer/character-matters/internal/http/handlers/videos"
	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/media"
	authservice "github.com/magabrotheeeer/character-matters/internal/services/auth"
	contentservice "github.com/magabrotheeeer/character-matters/internal/services/content"
	paymentservice "github.com/magabrotheeeer/character-matters/internal/services/payment"
	subservice "github.com/magabrotheeeer/character-matters/internal/services/subscription"
	userservice "github.com/magabrotheeeer/character-matters/internal/services/user"
)

// Services: всё, что нужно обработчикам API.
type Services struct {
	Auth          *authservice.AuthService
	Users         *userservice.Service
	Content       *contentservice.Service
	Subscriptions *subservice.Service
	Payments      *paymentservice.PaymentService
	Uploader      *media.Uploader
	// UploadDir раздаётся статикой по PublicBaseURL, пусто, файлы лежат во внешнем хранилище.
	UploadDir string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, reg *prometheus.Registry, s Services) {
	metrics := middlewarectx.NewMetrics(reg)

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
	)

	profileHandler := profile.New(logger, s.Auth)
	usersHandler := users.New(logger, s.Users)
	categoriesHandler := categories.New(logger, s.Content)
	videosHandler := videos.New(logger, s.Content, s.Uploader)
	ebooksHandler := ebooks.New(logger, s.Content, s.Uploader)
	stripeCheckout := stripecheckout.New(logger, s.Subscriptions)
	paystackCheckout := paystackcheckout.New(logger, s.Subscriptions)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit.RPS, cfg.RateLimit.Burst))

		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/categories", categoriesHandler.List)
		r.Get("/ebooks", ebooksHandler.List)

		// Webhook без аутентификации, подлинность проверяется подписью Stripe
		r.Post("/payments/webhook", paymentwebhook.New(logger, s.Payments).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))

			r.Get("/auth/profile", profileHandler.Get)
			r.Get("/auth/me", profileHandler.Get)
			r.Put("/auth/profile", profileHandler.Update)

			r.Get("/users", usersHandler.List)
			r.Get("/users/{id}", usersHandler.Get)
			r.Put("/users/{id}", usersHandler.Update)
			r.Delete("/users/{id}", usersHandler.Delete)

			r.Get("/videos", videosHandler.List)
			r.Get("/videos/{id}", videosHandler.Get)
			r.Get("/ebooks/{id}", ebooksHandler.Get)
			r.Post("/ebooks/{id}/purchase", ebooksHandler.Purchase)

			r.Get("/subscriptions", current.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/history", history.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions", create.New(logger, s.Subscriptions).ServeHTTP)
			r.Delete("/subscriptions", cancel.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions/checkout/stripe", stripeCheckout.Start)
			r.Post("/subscriptions/checkout/stripe/complete", stripeCheckout.Complete)
			r.Post("/subscriptions/checkout/paystack", paystackCheckout.Start)
			r.Get("/subscriptions/checkout/paystack/verify", paystackCheckout.Verify)

			r.Post("/payments/create-payment-intent", paymentcreate.New(logger, s.Payments).ServeHTTP)
			r.Get("/payments/history", paymentlist.New(logger, s.Payments).ServeHTTP)

			// Только для администраторов
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))
				r.Post("/categories", categoriesHandler.Create)
				r.Post("/videos", videosHandler.Create)
				r.Put("/videos/{id}", videosHandler.Update)
				r.Delete("/videos/{id}", videosHandler.Delete)
				r.Post("/ebooks", ebooksHandler.Create)
			})
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)

	if s.UploadDir != "" && strings.HasPrefix(cfg.PublicBaseURL, "/") {
		prefix := strings.TrimRight(cfg.PublicBaseURL, "/")
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(s.UploadDir)))
		r.Get(prefix+"/*", fs.ServeHTTP)
	}
}
