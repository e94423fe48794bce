package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Fuuurma/FinanceHub-sub001/docs"
	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
	"github.com/Fuuurma/FinanceHub-sub001/internal/controllers"
	"github.com/Fuuurma/FinanceHub-sub001/internal/middleware"
	"github.com/Fuuurma/FinanceHub-sub001/internal/monitoring"
	"github.com/Fuuurma/FinanceHub-sub001/internal/services"
)

const APIPrefix = "/api/v1/analytics"

// Dependencies are the collaborators the router wires into handlers
type Dependencies struct {
	Service     *services.AnalyticsService
	Hub         *controllers.DriftHub
	Metrics     *monitoring.Metrics
	RateLimiter *middleware.RateLimiter
	Health      *controllers.HealthController
	Logger      *logrus.Logger
}

// SetupRouter builds the gin engine with global middleware and every route
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logging(logger, deps.Metrics))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	if cfg.RateLimit.Enabled && deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.RateLimit())
	}

	api := router.Group(APIPrefix)

	// Unauthenticated routes
	if deps.Health != nil {
		api.GET("/health", deps.Health.Health)
	} else {
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
		})
	}
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	docs.SwaggerInfo.BasePath = APIPrefix
	api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	secured := api.Group("")
	secured.Use(middleware.Auth(cfg.Auth))
	{
		controllers.NewTimeSeriesController(deps.Service, logger).RegisterRoutes(secured)
		controllers.NewRiskController(deps.Service, logger).RegisterRoutes(secured)
		controllers.NewPerformanceController(deps.Service, logger).RegisterRoutes(secured)
		controllers.NewRebalancingController(deps.Service, logger).RegisterRoutes(secured)
		if deps.Hub != nil {
			secured.GET("/ws/drift", deps.Hub.ServeWS)
		}
	}

	return router
}

func corsConfig(allowed string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	var origins []string
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
