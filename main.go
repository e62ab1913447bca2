package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/seo-insight/backend/analyzer"
	"github.com/seo-insight/backend/extractor"
	"github.com/seo-insight/backend/fetcher"
	"github.com/seo-insight/backend/logging"
	"github.com/seo-insight/backend/middleware"
	"github.com/seo-insight/backend/recommend"
	"github.com/seo-insight/backend/stats"
	"github.com/seo-insight/backend/urlguard"
)

const recommendationCacheTTL = 15 * time.Minute

func loadEnv() {
	// Try .env.development first (local development), then regular .env.
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}
}

func setupGinMode() {
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
}

func main() {
	loadEnv()
	setupGinMode()

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	storage, err := stats.NewStorage(dataDir)
	if err != nil {
		log.Fatal("Failed to initialize stats storage:", err)
	}

	guard := urlguard.New(splitDomains(os.Getenv("ALLOWED_DOMAINS")), os.Getenv("SKIP_DOMAIN_CHECK") == "true")

	var textClient recommend.TextClient
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			model = "gpt-4o-mini"
		}
		textClient = recommend.NewOpenAIClient(apiKey, model, 10*time.Second)
	} else {
		log.Println("OPENAI_API_KEY not set, recommendations use fallback templates")
	}
	generator := recommend.New(textClient, recommend.NewMemoryCache(recommendationCacheTTL), storage)

	service := analyzer.NewService(
		guard,
		fetcher.New(),
		extractor.New(minifyThresholdFromEnv()),
		analyzer.NewEngine(generator),
		storage,
	)

	rateLimiter := middleware.NewRateLimiter(2, 5) // 2 requests per second, bucket size of 5
	usage := logging.Initialize()

	r := gin.Default()

	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(rateLimiter.RateLimit())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.Use(middleware.Stats(usage))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		api.POST("/analyze", analyzeHandler(service))

		api.GET("/statistics", func(c *gin.Context) {
			snapshot := usage.Snapshot()
			snapshot["recommendations"] = storage.GetCurrentStats()
			c.JSON(http.StatusOK, snapshot)
		})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	log.Printf("Server starting on http://localhost:%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func analyzeHandler(service *analyzer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Printf("Analyze request received from: %s\n", c.ClientIP())

		var req analyzer.Request
		if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || req.Keyphrase == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "A url and keyphrase are required",
			})
			return
		}
		middleware.SetAnalyzedURL(c, req.URL)

		result, err := service.Analyze(c.Request.Context(), req)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, urlguard.ErrInvalidURL):
				status = http.StatusBadRequest
			case errors.Is(err, fetcher.ErrFetchFailed):
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func splitDomains(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

func minifyThresholdFromEnv() int {
	v := os.Getenv("MINIFY_THRESHOLD_PCT")
	if v == "" {
		return 0 // extractor applies its default
	}
	pct, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return pct
}
