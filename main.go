package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/cache"
	"github.com/velmart/storefront-api/middleware"
	"github.com/velmart/storefront-api/models"
	"github.com/velmart/storefront-api/payment"
	"github.com/velmart/storefront-api/routes"
	"github.com/velmart/storefront-api/services"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	// Init DB
	db := initDatabase(logger)

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Category{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		logger.Fatal("automigrate failed", zap.Error(err))
	}

	// Redis is optional; the catalog cache degrades to pass-through without it.
	var catalog *cache.Catalog
	if rdb, err := cache.InitRedis(logger); err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
	} else {
		catalog = cache.NewCatalog(rdb, logger)
	}

	gateway, err := payment.NewClientFromEnv(logger)
	if err != nil {
		logger.Fatal("payment gateway init failed", zap.Error(err))
	}

	mailer := services.NewMailer(db, logger)
	orders := services.NewOrderService(db, logger, mailer)
	carts := services.NewCartService(db, logger)

	// Gin setup
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics())

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", middleware.PrometheusHandler())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	routes.SetupRoutes(r, routes.Deps{
		DB:      db,
		Log:     logger,
		Orders:  orders,
		Carts:   carts,
		Mailer:  mailer,
		Gateway: gateway,
		Catalog: catalog,
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase(logger *zap.Logger) *gorm.DB {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{SkipDefaultTransaction: true})
		if err != nil {
			logger.Fatal("db connection failed", zap.Error(err))
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	return db
}
