package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/kendall-kelly/marketplace/config"
	"github.com/kendall-kelly/marketplace/controllers"
	"github.com/kendall-kelly/marketplace/middleware"
	"github.com/kendall-kelly/marketplace/templates"
)

// Setup builds the router for the HTML site and the JSON API.
// redisClient may be nil, which disables rate limiting.
func Setup(cfg *config.Config, redisClient *redis.Client) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))
	router.SetHTMLTemplate(templates.MustParse())
	router.NoRoute(notFound)

	sendLimit := middleware.RateLimit(redisClient, "messages", cfg.RateLimitQPS)

	// HTML site
	public := router.Group("", middleware.OptionalLogin(cfg))
	{
		public.GET("/", controllers.ItemList)
		public.GET("/item/:id", controllers.ItemDetail)
		public.GET("/register", controllers.ShowRegister)
		public.POST("/register", controllers.Register)
		public.GET("/login", controllers.ShowLogin)
		public.POST("/login", controllers.Login)
		public.POST("/logout", controllers.Logout)
		public.GET("/profile/:username", controllers.ShowProfile)
	}

	private := router.Group("", middleware.RequireLogin(cfg))
	{
		private.POST("/item/:id/message", sendLimit, controllers.SendMessage)
		private.GET("/inbox", controllers.Inbox)
		private.GET("/profile/edit", controllers.ShowEditProfile)
		private.POST("/profile/edit", controllers.EditProfile)
	}

	// JSON API
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", controllers.HealthCheck)
		v1.GET("/database/status", controllers.DatabaseStatus)
		v1.GET("/items", controllers.ListItemsAPI)
		v1.GET("/items/:id", controllers.GetItemAPI)
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		authorized := v1.Group("", middleware.EnsureValidToken(cfg))
		authorized.POST("/items", controllers.CreateItemAPI)
		authorized.PATCH("/items/:id/availability", controllers.SetAvailabilityAPI)
		authorized.DELETE("/items/:id", controllers.DeleteItemAPI)
		authorized.POST("/items/:id/messages", sendLimit, controllers.SendMessageAPI)
		authorized.GET("/inbox", controllers.InboxAPI)
		authorized.POST("/users", controllers.CreateUser)
		authorized.GET("/users/me", controllers.GetMyProfile)
		authorized.PUT("/users/me", controllers.UpdateMyProfile)
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range cfg.CORSAllowedOrigins {
		if origin == "*" {
			corsCfg.AllowAllOrigins = true
			return corsCfg
		}
	}
	corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	}
	return corsCfg
}

func notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Resource not found",
			},
		})
		return
	}
	c.HTML(http.StatusNotFound, "error.html", gin.H{
		"Title":   "Not Found",
		"Status":  http.StatusNotFound,
		"Message": "The page you requested does not exist.",
	})
}
