package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpHdlr "certrag/handler/http"
	"certrag/src/core/rag"
	"certrag/src/infrastructure/ingestqueue"
	"certrag/src/infrastructure/log"
	"certrag/src/storage/minioctrl"
	"certrag/src/storage/postgres/materialctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the study-material QA server",
	Long: `The serve command starts an HTTP server exposing material upload,
upload-notification ingestion and the question-answering endpoint.`,
	Run: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) {
	// Initialize PostgreSQL connection
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	materialService, err := materialctrl.NewMaterialService(db)
	if err != nil {
		log.Error(err, "Failed to initialize material service")
		return
	}

	// Initialize MinIO client
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		log.Error(err, "Failed to initialize minio service")
		return
	}

	// Initialize model endpoint client and vector index
	ollamaClient, err := newOllamaClient()
	if err != nil {
		log.Error(err, "Failed to initialize ollama client")
		return
	}

	vectorIndex, err := newVectorIndex()
	if err != nil {
		log.Error(err, "Failed to initialize vector index")
		return
	}

	chunker, err := newChunker()
	if err != nil {
		log.Error(err, "Failed to initialize chunker")
		return
	}

	// Initialize AMQP publisher for upload events
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Error(err, "Failed to initialize AMQP publisher")
		return
	}
	defer amqpPublisher.Close()

	// Assemble the pipelines
	ingestService := rag.NewIngestService(minioService, chunker, ollamaClient, vectorIndex, materialService)
	queryService := rag.NewQueryService(
		ollamaClient,
		vectorIndex,
		ollamaClient,
		viper.GetInt("rag.top_k"),
		viper.GetInt("rag.max_tokens"),
	)

	materialHandler, err := httpHdlr.NewMaterialHandler(
		minioService,
		viper.GetString("minio.material_bucket"),
		materialService,
		ingestqueue.NewPublisher(amqpPublisher),
	)
	if err != nil {
		log.Error(err, "Failed to initialize material handler")
		return
	}

	queryHandler := httpHdlr.NewQueryHandler(queryService)
	notificationHandler := httpHdlr.NewNotificationHandler(ingestService)

	// Setup gin router
	r := gin.Default()

	// Register routes
	r.POST("/query", queryHandler.Query)
	r.POST("/notifications", notificationHandler.Notify)
	r.POST("/materials", materialHandler.Upload)
	r.GET("/materials", materialHandler.List)
	r.GET("/health", httpHdlr.Health)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Close database connection
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else if err := sqlDB.Close(); err != nil {
		log.Error(err, "Error closing database connection")
	}

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}
