package routes

import (
	"net/http"
	"time"

	"threadsntrends_back_end/internal/handlers/admin"
	"threadsntrends_back_end/internal/handlers/forms"
	"threadsntrends_back_end/internal/handlers/invoice"
	"threadsntrends_back_end/internal/handlers/payement"
	"threadsntrends_back_end/internal/handlers/product"
	"threadsntrends_back_end/internal/handlers/user"
	"threadsntrends_back_end/internal/middleware"
	"threadsntrends_back_end/internal/models"
	"threadsntrends_back_end/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handlers regroupe les handlers construits dans main.
type Handlers struct {
	Payment  *payement.Handler
	Auth     *user.AuthHandler
	Cart     *user.CartHandler
	Orders   *user.OrderHandler
	Products *product.Handler
	Invoice  *invoice.Handler
	Forms    *forms.Handler
	Audit    *admin.AuditHandler
}

type Options struct {
	Tokens      middleware.TokenParser
	Limiter     *middleware.RateLimiter
	AuditLog    middleware.AuditRecorder // nil quand Scylla n'est pas configuré
	CORSOrigins []string
	RatePerMin  int64
	Upgrader    *websocket.Upgrader
}

func RegisterRoutes(r *gin.Engine, h Handlers, opts Options) {
	r.Use(middleware.Recovery(), middleware.RequestLogger(), corsMiddleware(opts.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthRequired(opts.Tokens)
	optionalAuth := middleware.OptionalAuth(opts.Tokens)
	perMinute := opts.RatePerMin
	if perMinute <= 0 {
		perMinute = 100
	}
	strict := func(scope string, max int64) gin.HandlerFunc {
		return opts.Limiter.Limit(scope, max, time.Minute, middleware.ByIP)
	}

	api := r.Group("/api")

	// ============================================
	// 💳 PAIEMENT
	// ============================================
	api.POST("/checkout", optionalAuth, opts.Limiter.Limit("checkout", perMinute/5+1, time.Minute, middleware.ByUser), h.Payment.Checkout)
	api.GET("/order-status", h.Payment.OrderStatus)
	api.POST("/webhook/stripe", h.Payment.StripeWebhook)
	api.GET("/invoice/:orderID", optionalAuth, h.Invoice.DownloadInvoice)

	// ============================================
	// 🔐 AUTH
	// ============================================
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", strict("register", 10), h.Auth.Register)
		authGroup.POST("/login", strict("login", 10), h.Auth.Login)
		authGroup.GET("/me", authRequired, h.Auth.Me)
		authGroup.GET("/:provider", h.Auth.BeginOAuth)
		authGroup.GET("/:provider/callback", h.Auth.OAuthCallback)
	}

	// ============================================
	// 🛍️ CATALOGUE
	// ============================================
	products := api.Group("/products")
	{
		products.GET("", h.Products.ListProducts)
		products.GET("/search", h.Products.SearchProducts)
		products.GET("/:id", h.Products.GetProduct)
		products.GET("/:id/reviews", h.Products.GetReviews)
		products.POST("/:id/reviews", authRequired, opts.Limiter.Limit("reviews", 10, time.Minute, middleware.ByUser), h.Products.CreateReview)
	}

	// ============================================
	// 🛒 PANIER
	// ============================================
	cart := api.Group("/cart", authRequired)
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("", h.Cart.AddToCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.GET("/ws", h.Cart.CartWebSocket(opts.Upgrader))
		cart.PATCH("/:productId/increase", h.Cart.IncreaseQuantity)
		cart.PATCH("/:productId/decrease", h.Cart.DecreaseQuantity)
		cart.DELETE("/:productId", h.Cart.RemoveFromCart)
	}

	// ============================================
	// 📦 COMMANDES CLIENT
	// ============================================
	api.GET("/orders/mine", authRequired, h.Orders.GetMyOrders)
	api.GET("/orders/track/:orderID", strict("track", perMinute), h.Orders.TrackOrder)

	// ============================================
	// 📨 FORMULAIRES
	// ============================================
	api.POST("/contact", strict("contact", 5), h.Forms.SubmitContact)
	api.POST("/measurements", authRequired, h.Forms.SubmitMeasurement)
	api.GET("/measurements/mine", authRequired, h.Forms.MyMeasurements)

	registerAdmin(api.Group("/admin", authRequired, middleware.RequireRole(models.RoleAdmin)), h, opts.AuditLog)
}

func registerAdmin(g *gin.RouterGroup, h Handlers, rec middleware.AuditRecorder) {
	audit := func(action, resource, param string) gin.HandlerFunc {
		return middleware.Audit(rec, action, resource, param)
	}

	orders := g.Group("/orders")
	{
		orders.GET("", h.Payment.ListOrders)
		orders.GET("/stats", h.Payment.Stats)
		orders.GET("/:orderID", h.Payment.GetOrder)
		orders.POST("", audit(services.ActionOrderCreate, services.ResourceOrder, ""), h.Payment.CreateOrder)
		orders.PUT("/:orderID", audit(services.ActionOrderUpdate, services.ResourceOrder, "orderID"), h.Payment.UpdateOrder)
		orders.PATCH("/:orderID/status", audit(services.ActionOrderStatus, services.ResourceOrder, "orderID"), h.Payment.UpdateOrderStatus)
		orders.DELETE("/:orderID", audit(services.ActionOrderDelete, services.ResourceOrder, "orderID"), h.Payment.DeleteOrder)
	}
	g.GET("/webhooks/dead-letters", h.Payment.DeadLetters)

	products := g.Group("/products")
	{
		products.POST("", audit(services.ActionProductCreate, services.ResourceProduct, ""), h.Products.CreateProduct)
		products.PUT("/:id", audit(services.ActionProductUpdate, services.ResourceProduct, "id"), h.Products.UpdateProduct)
		products.DELETE("/:id", audit(services.ActionProductDelete, services.ResourceProduct, "id"), h.Products.DeleteProduct)
		products.POST("/:id/images", audit(services.ActionProductImage, services.ResourceProduct, "id"), h.Products.UploadProductImage)
	}

	inventory := g.Group("/inventory")
	{
		inventory.GET("", h.Products.GetInventory)
		inventory.GET("/low-stock", h.Products.GetLowStock)
		inventory.PUT("/:id", audit(services.ActionStockUpdate, services.ResourceInventory, "id"), h.Products.UpdateStock)
	}

	g.GET("/contacts", h.Forms.ListContacts)
	g.DELETE("/contacts/:id", audit(services.ActionContactDelete, services.ResourceContact, "id"), h.Forms.DeleteContact)
	g.GET("/measurements", h.Forms.ListMeasurements)
	g.PATCH("/measurements/:id/submitted", audit(services.ActionMeasurementSubmit, services.ResourceMeasurement, "id"), h.Forms.SetMeasurementSubmitted)

	g.GET("/audit-logs", h.Audit.GetAuditLogs)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
