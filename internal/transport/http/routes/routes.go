package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/infra/config"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/handlers"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/middleware"
	"github.com/AurelieVidal/TempoAPI/internal/usecase"
)

// AdminRole is the role required by the administrative endpoints.
const AdminRole = "ADMIN"

// Dependencies aggregates everything the router needs.
type Dependencies struct {
	Config       *config.AppConfig
	Logger       *zap.Logger
	Auth         *usecase.AuthService
	Anomaly      *usecase.AnomalyDetector
	Challenges   *usecase.ChallengeService
	Tokens       *usecase.TokenService
	Registration *usecase.RegistrationService
	Accounts     *usecase.AccountService
	RateLimiter  *middleware.RateLimiter
	Metrics      *middleware.HTTPMetrics
	HealthChecks map[string]handlers.DependencyCheck
}

// Setup builds the Gin engine with middleware and every route group wired.
func Setup(deps Dependencies) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.EnrichContext())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(deps.Logger))
	engine.Use(middleware.CORS([]string{"*"}))
	if deps.Metrics != nil {
		engine.Use(deps.Metrics.Handler())
	}

	health := handlers.NewHealthHandler(deps.HealthChecks)
	health.RegisterRoutes(engine.Group(""))

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Anomaly, deps.Challenges, deps.Tokens)
	authHandler.RegisterRoutes(api.Group("/auth"), loginRateLimit(deps)...)

	registrationHandler := handlers.NewRegistrationHandler(deps.Registration)
	registrationHandler.RegisterRoutes(api.Group("/accounts"), registerRateLimit(deps)...)

	securityHandler := handlers.NewSecurityHandler(deps.Challenges, deps.Registration)
	securityHandler.RegisterRoutes(api.Group("/security"), forgottenRateLimit(deps)...)
	authHandler.RegisterSecurityRoutes(api.Group("/security"))

	accountHandler := handlers.NewAccountHandler(deps.Accounts)
	accountHandler.RegisterQuestionRoutes(api)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(deps.Auth), middleware.RequireRole(AdminRole))
	accountHandler.RegisterAdminRoutes(admin)

	return engine
}

func loginRateLimit(deps Dependencies) []gin.HandlerFunc {
	return rateLimitRule(deps, "login", func(cfg config.RateLimitSettings) int { return cfg.LoginMaxAttempts })
}

func registerRateLimit(deps Dependencies) []gin.HandlerFunc {
	return rateLimitRule(deps, "register", func(cfg config.RateLimitSettings) int { return cfg.RegisterMaxAttempts })
}

func forgottenRateLimit(deps Dependencies) []gin.HandlerFunc {
	return rateLimitRule(deps, "forgotten_password", func(cfg config.RateLimitSettings) int { return cfg.ForgottenMaxAttempts })
}

func rateLimitRule(deps Dependencies, name string, limit func(config.RateLimitSettings) int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	cfg := deps.Config.RateLimit
	n := limit(cfg)
	if n <= 0 || cfg.WindowDuration <= 0 {
		return nil
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       name,
		Limit:      n,
		Window:     cfg.WindowDuration,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}
