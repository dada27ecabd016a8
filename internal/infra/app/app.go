package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/config"
	"github.com/AurelieVidal/TempoAPI/internal/infra/database"
	"github.com/AurelieVidal/TempoAPI/internal/infra/hibp"
	kafkainfra "github.com/AurelieVidal/TempoAPI/internal/infra/kafka"
	"github.com/AurelieVidal/TempoAPI/internal/infra/logger"
	redisinfra "github.com/AurelieVidal/TempoAPI/internal/infra/redis"
	"github.com/AurelieVidal/TempoAPI/internal/infra/security"
	"github.com/AurelieVidal/TempoAPI/internal/infra/sms"
	"github.com/AurelieVidal/TempoAPI/internal/infra/smtp"
	"github.com/AurelieVidal/TempoAPI/internal/infra/telemetry"
	postgresrepo "github.com/AurelieVidal/TempoAPI/internal/repository/postgres"
	redisrepo "github.com/AurelieVidal/TempoAPI/internal/repository/redis"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/handlers"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/middleware"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/routes"
	"github.com/AurelieVidal/TempoAPI/internal/usecase"
)

// Application bundles the wired service with its lifecycle-managed resources.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// New wires every layer of the service from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
			tracer = nil
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewFileKeyProvider(cfg.JWT.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	tokenManager := security.NewTokenManager(keyProvider, cfg.App.Name)

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	notifier := smtp.NewNotifier(cfg.SMTP, log)

	var smsVerifier port.SMSVerifier
	if cfg.SMS.BaseURL != "" {
		smsVerifier = sms.NewVerifier(cfg.SMS, log)
	} else {
		log.Info("sms verify api not configured, using stub verifier")
		smsVerifier = sms.NewStubVerifier(log)
	}

	breach := hibp.NewClient(cfg.Breach, log)
	policy := security.NewPasswordPolicy(breach, cfg.Security.MinPasswordLength, cfg.Security.MinStrengthScore)

	pepper := cfg.Security.Pepper

	authService := usecase.NewAuthService(pepper, repos.Accounts, repos.Connections, tokenManager, log)
	anomalyDetector := usecase.NewAnomalyDetector(
		repos.Accounts,
		repos.Connections,
		cfg.Security.StaleConnectionAge,
		cfg.Security.IPChangeWindow,
		log,
	)
	challengeService := usecase.NewChallengeService(
		pepper,
		repos.Accounts,
		repos.Connections,
		notifier,
		eventPublisher,
		cfg.Security.ChallengeTTL,
		log,
	)
	tokenService := usecase.NewTokenService(
		repos.Accounts,
		repos.Tokens,
		tokenManager,
		cfg.JWT.AccessTokenTTL,
		cfg.Security.RefreshTokenTTL,
		cfg.Security.RefreshRotateThreshold,
		log,
	)
	registrationService := usecase.NewRegistrationService(
		pepper,
		repos.Accounts,
		repos.Connections,
		repos.Questions,
		policy,
		tokenManager,
		notifier,
		smsVerifier,
		eventPublisher,
		cfg.JWT.EmailTokenTTL,
		cfg.Security.ChallengeTTL,
		log,
	)
	accountService := usecase.NewAccountService(repos.Accounts, repos.Questions)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "tempo:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Setup(routes.Dependencies{
		Config:       cfg,
		Logger:       log,
		Auth:         authService,
		Anomaly:      anomalyDetector,
		Challenges:   challengeService,
		Tokens:       tokenService,
		Registration: registrationService,
		Accounts:     accountService,
		RateLimiter:  rateLimiter,
		Metrics:      metrics,
		HealthChecks: map[string]handlers.DependencyCheck{
			"postgres": pool.Ping,
			"redis":    redisClient.HealthCheck,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracer:   tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			_ = a.tracer.Shutdown(context.Background())
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting tempo API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
