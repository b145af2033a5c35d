// Package api собирает HTTP API: хранилище, кеш, платёжных провайдеров,
// сервисы и маршруты.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/character-matters/internal/app/events"
	"github.com/magabrotheeeer/character-matters/internal/cache"
	"github.com/magabrotheeeer/character-matters/internal/config"
	"github.com/magabrotheeeer/character-matters/internal/lib/jwt"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/media"
	"github.com/magabrotheeeer/character-matters/internal/migrations"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider/paystack"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider/stripe"
	authservice "github.com/magabrotheeeer/character-matters/internal/services/auth"
	contentservice "github.com/magabrotheeeer/character-matters/internal/services/content"
	paymentservice "github.com/magabrotheeeer/character-matters/internal/services/payment"
	subservice "github.com/magabrotheeeer/character-matters/internal/services/subscription"
	userservice "github.com/magabrotheeeer/character-matters/internal/services/user"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// App: HTTP API со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	broker *events.Broker
	sentry bool
}

// New подключается к хранилищам, применяет миграции и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	app.db = db
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		app.close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		app.close()
		return nil, err
	}
	app.cache = cacheRedis

	broker, err := events.Connect(cfg.RabbitMQ, db, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	app.broker = broker

	store, err := media.NewStore(ctx, cfg.Media)
	if err != nil {
		app.close()
		return nil, err
	}
	uploader := media.NewUploader(store, cfg.MaxUploadMB<<20)
	var uploadDir string
	if disk, ok := store.(*media.DiskStore); ok {
		uploadDir = disk.Dir()
	}

	// Пустой интерфейс вместо nil-указателя: сервисы проверяют наличие Stripe через == nil.
	var (
		subStripe subservice.StripeClient
		payStripe paymentservice.StripeClient
	)
	if cfg.Stripe.SecretKey != "" {
		client := stripe.NewClient(stripe.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			BackendURL:    cfg.Stripe.BackendURL,
		})
		subStripe, payStripe = client, client
	} else {
		logger.Warn("stripe secret key is not set, stripe operations are disabled")
	}
	paystackClient := paystack.NewClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	subscriptionService := subservice.New(logger, subservice.Deps{
		Subscriptions: db,
		Users:         db,
		Stripe:        subStripe,
		Paystack:      paystackClient,
		Cache:         cacheRedis,
		Events:        broker,
	}, subservice.Config{
		FrontendURL:      cfg.FrontendURL,
		PaystackCurrency: cfg.Paystack.Currency,
	})

	services := Services{
		Auth:          authservice.NewAuthService(db, jwtMaker),
		Users:         userservice.New(db),
		Content:       contentservice.New(db, logger),
		Subscriptions: subscriptionService,
		Payments:      paymentservice.New(logger, db, payStripe, subscriptionService),
		Uploader:      uploader,
		UploadDir:     uploadDir,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, reg, services)

	var handler http.Handler = router
	if cfg.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.DSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Env,
		}); err != nil {
			logger.Error("sentry init failed", sl.Err(err))
		} else {
			app.sentry = true
			handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(router)
		}
	}

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      handler,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}

func (a *App) close() {
	if a.sentry {
		sentry.Flush(2 * time.Second)
	}
	if a.broker != nil {
		a.broker.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
