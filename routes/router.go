package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/controllers"
	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/middleware"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB          *gorm.DB
	Users       *store.Users
	Challenges  *store.Challenges
	Communities *store.Communities
	Feed        *store.FeedPublisher
	DailyLogs   *store.DailyLogs
	Outbox      *store.Outbox
	Updater     *engine.Updater
	Enrollment  *engine.Enrollment
	// Registry enables /metrics and HTTP metrics when set.
	Registry *prometheus.Registry
}

// NewDeps builds the stores on db and the engine on top of them. Engine metrics are
// registered on reg when it is not nil.
func NewDeps(db *gorm.DB, reg *prometheus.Registry, opts ...engine.Option) Deps {
	d := Deps{
		DB:          db,
		Users:       store.NewUsers(db),
		Challenges:  store.NewChallenges(db),
		Communities: store.NewCommunities(db),
		Feed:        store.NewFeedPublisher(db),
		DailyLogs:   store.NewDailyLogs(db),
		Outbox:      store.NewOutbox(db),
		Registry:    reg,
	}
	participants := store.NewParticipants(db)
	opts = append([]engine.Option{engine.WithOutbox(d.Outbox)}, opts...)
	if reg != nil {
		opts = append(opts, engine.WithMetrics(engine.NewMetrics(reg)))
	}

	notifier := engine.NewNotifier(d.Users, d.Feed, opts...)
	d.Updater = engine.NewUpdater(participants, d.Challenges, notifier, opts...)
	d.Enrollment = engine.NewEnrollment(participants, d.Challenges, d.Users, d.Communities, opts...)
	return d
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file
	var gl *zap.Logger
	if cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		}
	}
	if gl != nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDKey},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDKey},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if d.Registry != nil {
		r.Use(middleware.Monitor(middleware.NewHTTPMetrics(d.Registry)))
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(d.Users, d.Updater)
	challengeController := controllers.NewChallengeController(d.Challenges, d.Enrollment, d.Updater)
	logController := controllers.NewDailyLogController(d.DailyLogs, d.Updater)
	streakController := controllers.NewStreakController(d.DailyLogs, d.Users, d.Updater)
	communityController := controllers.NewCommunityController(d.Communities, d.Challenges, d.Feed)
	statsController := controllers.NewStatsController(d.DB)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public catalog
	api.GET("/challenges", challengeController.ListChallenges)
	api.GET("/challenges/:id", challengeController.GetChallenge)
	api.GET("/communities/:id/challenges", communityController.ListChallenges)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/challenges", middleware.AdminRequired(), challengeController.CreateChallenge)
	protected.DELETE("/challenges/:id", middleware.AdminRequired(), challengeController.DeleteChallenge)
	protected.PUT("/challenges/:id/join", challengeController.Join)
	protected.DELETE("/challenges/:id/join", challengeController.Leave)

	protected.GET("/users/me/challenges", challengeController.MyChallenges)
	protected.PUT("/users/me/goal-progress", challengeController.SetGoalProgress)
	protected.GET("/users/me/streak", streakController.GetStreak)

	protected.POST("/daily-logs", logController.CreateLog)
	protected.PUT("/daily-logs/:id", logController.UpdateLog)

	protected.POST("/communities", communityController.CreateCommunity)
	protected.PUT("/communities/:id/join", communityController.JoinCommunity)
	protected.GET("/communities/:id/feed", communityController.Feed)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	})

	return r
}
