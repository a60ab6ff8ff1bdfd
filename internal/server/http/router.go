// Package httpserver exposes the ReWear JSON API over gin.
package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/service"
)

// Services bundles the application services the handlers call.
type Services struct {
	Auth       service.AuthService
	Settlement service.SettlementService
	Listings   service.ListingService
	Moderation service.ModerationService
	Dashboard  service.DashboardService
}

// Options tunes transport behaviour.
type Options struct {
	CORSOrigins  []string
	CookieSecure bool
	TokenTTL     time.Duration
}

type handler struct {
	svc  Services
	opts Options
	log  *zap.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(svc Services, opts Options, log *zap.Logger) (*gin.Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := registerValidators(); err != nil {
		return nil, err
	}
	h := &handler{svc: svc, opts: opts, log: log.With(zap.String("component", "http"))}

	r := gin.New()
	r.Use(Logging(h.log), Recovery(h.log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	userAuth := Authenticate(svc.Auth, model.RoleUser)
	adminAuth := Authenticate(svc.Auth, model.RoleAdmin)

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/user/signup", h.signup)
		authRoutes.POST("/user/login", h.login)
		authRoutes.POST("/user/logout", userAuth, h.logout)
		authRoutes.GET("/user/profile", userAuth, h.profile)
		authRoutes.POST("/admin/signup", h.adminSignup)
		authRoutes.POST("/admin/login", h.adminLogin)
	}

	items := api.Group("/items")
	{
		items.GET("", h.listItems)
		items.GET("/:itemId", h.getItem)
		items.POST("/list", userAuth, h.createListing)
		items.POST("/redeem/:itemId", userAuth, h.redeem)
	}

	swaps := api.Group("/swaps", userAuth)
	{
		swaps.POST("/request", h.proposeSwap)
		swaps.POST("/respond/:swapRequestId", h.respondToSwap)
		swaps.POST("/cancel/:swapRequestId", h.cancelSwap)
	}

	api.GET("/users/dashboard", userAuth, h.dashboard)

	admin := api.Group("/admin", adminAuth)
	{
		admin.GET("/admins/pending", h.pendingAdmins)
		admin.PATCH("/approve-admin/:adminId", h.approveAdmin)
		admin.GET("/items/pending", h.pendingItems)
		admin.PATCH("/items/moderate/:itemId", h.moderateItem)
	}
	return r, nil
}
