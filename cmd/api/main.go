package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bizorder-system/config"
	"bizorder-system/internal/database"
	"bizorder-system/internal/handlers"
	"bizorder-system/internal/middleware"
	"bizorder-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret != "" {
		utils.JwtSecret = []byte(cfg.Auth.JWTSecret)
	}

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	companyHandler := handlers.NewCompanyHandler(db)
	userHandler := handlers.NewUserHandler(db)
	catalogHandler := handlers.NewCatalogHandler(db, redisClient)
	scheduleHandler := handlers.NewScheduleHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	orderHandler := handlers.NewOrderHandler(db, redisClient)
	approvalHandler := handlers.NewApprovalHandler(db, redisClient)
	monitorHandler := handlers.NewMonitorHandler(db)

	r := gin.Default()

	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.RateLimit("100-M"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		companies := protected.Group("/companies")
		{
			companies.POST("", companyHandler.Create)
			companies.GET("", companyHandler.List)
			companies.GET("/:id", companyHandler.Get)
			companies.PUT("/:id", companyHandler.Update)
		}

		users := protected.Group("/users")
		{
			users.POST("", userHandler.RegisterSubAccount)
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		products := protected.Group("/products")
		{
			products.POST("", catalogHandler.CreateProduct)
			products.GET("", catalogHandler.ListProducts)
			products.GET("/:id", catalogHandler.GetProduct)
		}

		companyProducts := protected.Group("/company-products")
		{
			companyProducts.POST("", catalogHandler.CreateCompanyProduct)
			companyProducts.GET("", catalogHandler.ListCompanyProducts)
			companyProducts.PUT("/:id", catalogHandler.UpdateCompanyProduct)
			companyProducts.DELETE("/:id", catalogHandler.DeleteCompanyProduct)
		}

		schedules := protected.Group("/price-schedules")
		{
			schedules.POST("", scheduleHandler.Create)
			schedules.GET("", scheduleHandler.List)
			schedules.GET("/history", scheduleHandler.History)
			schedules.PUT("/:id", scheduleHandler.Update)
			schedules.DELETE("/:id", scheduleHandler.Delete)
		}

		cart := protected.Group("/cart")
		{
			cart.POST("", cartHandler.Add)
			cart.GET("", cartHandler.List)
			cart.PUT("/:id", cartHandler.UpdateItem)
			cart.DELETE("/:id", cartHandler.RemoveItem)
			cart.DELETE("", cartHandler.Clear)
		}

		orders := protected.Group("/orders")
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.POST("/:id/cancel-request", orderHandler.RequestCancel)
			orders.PUT("/:id/status", orderHandler.UpdateStatus)
		}

		approvals := protected.Group("/approvals")
		{
			approvals.GET("", approvalHandler.List)
			approvals.POST("/action", approvalHandler.Action)
			approvals.GET("/pending-count", approvalHandler.PendingCount)
		}

		monitor := protected.Group("/monitor-categories")
		{
			monitor.POST("", monitorHandler.CreateCategory)
			monitor.GET("", monitorHandler.ListCategories)
			monitor.GET("/:id", monitorHandler.GetCategory)
			monitor.DELETE("/:id", monitorHandler.DeleteCategory)
		}
		protected.POST("/monitor-projects", monitorHandler.CreateProject)
		protected.POST("/measurements", monitorHandler.CreateMeasurement)
	}

	addr := ":" + cfg.Port
	log.Printf("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
