// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/categories"
	"github.com/mikepea/foodshare/pkg/foodshare/claims"
	"github.com/mikepea/foodshare/pkg/foodshare/config"
	"github.com/mikepea/foodshare/pkg/foodshare/events"
	"github.com/mikepea/foodshare/pkg/foodshare/foods"
	"github.com/mikepea/foodshare/pkg/foodshare/friends"
	"github.com/mikepea/foodshare/pkg/foodshare/groups"
	"github.com/mikepea/foodshare/pkg/foodshare/importexport"
	"github.com/mikepea/foodshare/pkg/foodshare/logger"
	"github.com/mikepea/foodshare/pkg/foodshare/metrics"
	"github.com/mikepea/foodshare/pkg/foodshare/ratelimit"
	"github.com/mikepea/foodshare/pkg/foodshare/users"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps are the collaborators the router needs
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Sessions  *auth.SessionManager
	Limiter   *ratelimit.LoginLimiter
	Publisher events.Publisher
	// Throttle is the per-IP limiter; one is built from Config when nil
	Throttle *ratelimit.IPLimiter
}

// New builds the gin engine with every route mounted
func New(deps Deps) *gin.Engine {
	cfg := deps.Config
	db := deps.DB

	r := gin.New()
	r.Use(apperrors.Recovery(), logger.GinMiddleware(), metrics.GinMiddleware())

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	throttle := deps.Throttle
	if throttle == nil {
		throttle = ratelimit.NewIPLimiter(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst)
	}
	r.Use(throttle.Middleware())

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "foodshare"})
	}
	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	requireSession := deps.Sessions.Middleware()

	usersHandler := users.NewHandler(db)
	foodsHandler := foods.NewHandler(db, cfg.BaseURL)
	claimsHandler := claims.NewHandler(claims.NewService(db, deps.Publisher))

	api := r.Group("/api")
	{
		api.GET("/health", health)

		// Auth routes (public apart from /me)
		authGroup := api.Group("/auth")
		auth.NewHandler(db, deps.Sessions, deps.Limiter).RegisterRoutes(authGroup)
		authGroup.GET("/me", requireSession, usersHandler.Me)

		categories.NewHandler(db).RegisterRoutes(api.Group("/categories"))

		usersHandler.RegisterRoutes(api.Group("/users", requireSession))

		foodsGroup := api.Group("/foods", requireSession)
		foodsHandler.RegisterRoutes(foodsGroup)
		claimsHandler.RegisterFoodRoutes(foodsGroup)
		importexport.NewHandler(db).RegisterRoutes(foodsGroup)

		friends.NewHandler(friends.NewService(db, deps.Publisher)).RegisterRoutes(api.Group("/friends", requireSession))

		groupsHandler := groups.NewHandler(db)
		groupsGroup := api.Group("/groups", requireSession)
		groupsHandler.RegisterRoutes(groupsGroup)
		groupsHandler.RegisterMemberRoutes(groupsGroup)

		claimsHandler.RegisterRoutes(api.Group("/requests", requireSession))
	}

	// Public share page
	foodsHandler.RegisterPublicRoutes(r.Group("/share"))

	r.NoRoute(apperrors.NotFoundHandler)

	return r
}
