package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"certrag/src/core/rag"
	"certrag/src/infrastructure/ingestqueue"
	"certrag/src/infrastructure/log"
	"certrag/src/storage/minioctrl"
	"certrag/src/storage/postgres/materialctrl"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the ingestion worker",
	Long: `The worker command consumes upload notifications from the message
queue and runs the ingestion pipeline for each uploaded object.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := watermill.NewStdLogger(false, false)

	// Initialize PostgreSQL connection
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	defer sqlDB.Close()

	materialService, err := materialctrl.NewMaterialService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize material service: %w", err)
	}

	// Initialize MinioService
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %w", err)
	}

	// Initialize model endpoint client, vector index and chunker
	ollamaClient, err := newOllamaClient()
	if err != nil {
		return fmt.Errorf("failed to initialize ollama client: %w", err)
	}

	vectorIndex, err := newVectorIndex()
	if err != nil {
		return fmt.Errorf("failed to initialize vector index: %w", err)
	}

	chunker, err := newChunker()
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %w", err)
	}

	ingestService := rag.NewIngestService(minioService, chunker, ollamaClient, vectorIndex, materialService)

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	// Initialize router
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	// Process upload notifications
	router.AddNoPublisherHandler(
		"ingest_processor",
		ingestqueue.Topic,
		amqpSubscriber,
		func(msg *message.Message) error {
			var notification ingestqueue.Notification
			if err := json.Unmarshal(msg.Payload, &notification); err != nil {
				return fmt.Errorf("failed to unmarshal notification: %w", err)
			}

			processed := ingestService.ProcessBatch(msg.Context(), notification.UploadRecords())
			log.Info("processed upload notification",
				"records", len(notification.Records),
				"recordsProcessed", processed)
			return nil
		},
	)

	// Run the router
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := router.Run(ctx); err != nil {
			log.Error(err, "router stopped")
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info("Shutting down...")
	cancel()
	<-router.Running()
	log.Info("Router stopped")

	return nil
}
