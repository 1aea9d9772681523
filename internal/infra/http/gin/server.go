package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/config"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Messaging      MessagingHTTP
	Profile        ProfileHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.Observe())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if obsMW.Metrics != nil {
		router.GET("/metrics", gin.WrapH(obsMW.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Messaging != nil {
		conv := api.Group("/conversations")
		conv.GET("", h.Messaging.List)
		conv.POST("", h.Messaging.Start)
		conv.GET("/unread", h.Messaging.Unread)
		conv.GET("/:key", h.Messaging.Get)
		conv.POST("/:key/select", h.Messaging.Select)
		conv.DELETE("/:key", h.Messaging.DeleteThread)
		conv.POST("/:key/messages", h.Messaging.Send)
		conv.POST("/:key/messages/:local_id/retry", h.Messaging.Retry)
		conv.DELETE("/:key/messages/:message_id", h.Messaging.DeleteMessage)
	}
	if h.Profile != nil {
		api.POST("/me/avatar", h.Profile.UploadAvatar)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
