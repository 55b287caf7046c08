package routes

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	config "github.com/phillip/club-events-go/config"
	controllers "github.com/phillip/club-events-go/controllers"
	middleware "github.com/phillip/club-events-go/middleware"
)

// Dependencies are the stores and services the handlers run against.
// Media is nil when poster uploads are disabled.
type Dependencies struct {
	Payments      controllers.PaymentService
	Events        controllers.EventStore
	Media         controllers.PosterStore
	Registrations controllers.RegistrationLister
	Submissions   controllers.SubmissionStore
	Admins        controllers.AdminStore
	Ping          func(ctx context.Context) error
	Log           *zerolog.Logger
}

func NewEngine(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(corsMiddleware(cfg))

	if err := SetupRoutes(r, cfg, deps); err != nil {
		return nil, err
	}
	return r, nil
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader}
	cc.ExposeHeaders = []string{"ETag", "Last-Modified", "Content-Disposition", middleware.RequestIDHeader}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(cc)
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, deps Dependencies) error {
	limit, err := middleware.RateLimit(cfg.RateLimit)
	if err != nil {
		return err
	}
	jsonOnly := middleware.RequireJSON()

	// operational
	r.GET("/healthz", controllers.Health(deps.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// payments
	r.POST("/create-order", limit, jsonOnly, controllers.CreateOrder(deps.Payments))
	r.POST("/verify-payment", jsonOnly, controllers.VerifyPayment(deps.Payments))
	r.POST("/log-failed-payment", limit, jsonOnly, controllers.LogFailedPayment(deps.Payments))

	// public
	r.GET("/events/active", controllers.GetActiveEvent(deps.Events))
	r.POST("/contacts", limit, jsonOnly, controllers.CreateContact(deps.Submissions, deps.Log))
	r.POST("/join-requests", limit, jsonOnly, controllers.CreateJoinRequest(deps.Submissions, deps.Log))

	// auth
	r.POST("/auth/login", limit, jsonOnly, controllers.Login(cfg, deps.Admins))
	r.POST("/auth/setup", limit, jsonOnly, controllers.Setup(cfg, deps.Admins, deps.Log))

	// protected
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	{
		admin.GET("/events", controllers.ListEvents(deps.Events))
		admin.POST("/events", controllers.CreateEvent(deps.Events, deps.Media, deps.Log))
		admin.GET("/events/:id", controllers.GetEvent(deps.Events))
		admin.PATCH("/events/:id", controllers.UpdateEvent(deps.Events, deps.Media, deps.Log))
		admin.DELETE("/events/:id", controllers.DeleteEvent(deps.Events, deps.Media, deps.Log))
		admin.POST("/events/:id/activate", controllers.SetEventActive(deps.Events, true, deps.Log))
		admin.POST("/events/:id/deactivate", controllers.SetEventActive(deps.Events, false, deps.Log))

		admin.GET("/registrations", controllers.ListRegistrations(deps.Registrations))
		admin.GET("/registrations/export", controllers.ExportRegistrations(deps.Registrations))

		admin.GET("/contacts", controllers.ListContacts(deps.Submissions))
		admin.GET("/contacts/export", controllers.ExportContacts(deps.Submissions))
		admin.GET("/join-requests", controllers.ListJoinRequests(deps.Submissions))
		admin.GET("/join-requests/export", controllers.ExportJoinRequests(deps.Submissions))
	}

	return nil
}
