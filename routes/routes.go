package routes

import (
	"net/http"

	"barberflow-backend/config"
	"barberflow-backend/controllers"
	"barberflow-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func SetupRouter(h *controllers.Handler, settings config.Settings, gatherer prometheus.Gatherer, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     settings.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", h.Me)
	}

	public := r.Group("/public/shops/:slug")
	{
		public.GET("", h.GetPublicShop)
		public.POST("/appointments", h.CreatePublicAppointment)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		api.GET("/shops", h.GetShop)
		api.PUT("/shops", h.UpdateShop)
		api.PATCH("/shops", h.UpdateShop)

		whatsapp := api.Group("/shops/whatsapp")
		{
			whatsapp.GET("/status", h.WhatsAppStatus)
			whatsapp.POST("/create", h.WhatsAppCreate)
			whatsapp.GET("/qrcode", h.WhatsAppQRCode)
		}

		appointments := api.Group("/appointments")
		{
			appointments.GET("", h.ListAppointments)
			appointments.GET("/pending", h.PendingAppointments)
			appointments.POST("", h.CreateAppointment)
			appointments.GET("/:id", h.GetAppointment)
			appointments.PUT("/:id", h.UpdateAppointment)
			appointments.PATCH("/:id/confirm", h.ConfirmAppointment)
			appointments.PATCH("/:id/complete", h.CompleteAppointment)
			appointments.PATCH("/:id/cancel", h.CancelAppointment)
			appointments.DELETE("/:id", h.DeleteAppointment)
		}

		barbers := api.Group("/barbers")
		{
			barbers.GET("", h.GetBarbers)
			barbers.POST("", h.CreateBarber)
		}

		services := api.Group("/services")
		{
			services.GET("", h.GetServices)
			services.POST("", h.CreateService)
			services.PUT("/:id", h.UpdateService)
		}

		clients := api.Group("/clients")
		{
			clients.GET("", h.GetClients)
			clients.GET("/top", h.GetTopClients)
			clients.GET("/:id", h.GetClient)
		}

		products := api.Group("/products")
		{
			products.GET("", h.GetProducts)
			products.POST("", h.CreateProduct)
			products.GET("/:id", h.GetProduct)
			products.PUT("/:id", h.UpdateProduct)
			products.DELETE("/:id", h.DeleteProduct)
			products.PATCH("/:id/stock", h.UpdateStock)
		}

		api.GET("/dashboard", h.GetDashboardOverview)
	}

	return r
}
