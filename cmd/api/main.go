package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/minechat-api/internal/application/token"
	"github.com/minechat-api/internal/config"
	"github.com/minechat-api/internal/infrastructure/dynamo"
	"github.com/minechat-api/internal/infrastructure/facebook"
	jwtinfra "github.com/minechat-api/internal/infrastructure/jwt"
	"github.com/minechat-api/internal/infrastructure/openai"
	s3infra "github.com/minechat-api/internal/infrastructure/s3"
	"github.com/minechat-api/internal/infrastructure/sns"
	transporthttp "github.com/minechat-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available, token endpoints unguarded: %v", err)
	}

	// Webhook payload archive (optional).
	var archive *s3infra.Archive
	if cfg.WebhookArchiveBucket != "" {
		archive = s3infra.NewArchive(s3infra.NewClient(cfg), cfg.WebhookArchiveBucket)
	}

	// Rotation alerts (optional).
	var alerts sns.AlertPublisher
	if cfg.AlertTopicARN != "" {
		if p, err := sns.NewPublisher(cfg); err == nil {
			alerts = p
		} else {
			log.Printf("WARN: SNS alerts not available: %v", err)
		}
	}

	graph := facebook.NewClient(cfg)

	deps := &transporthttp.Deps{
		OTPRepo:          dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPCodes),
		ResetSessionRepo: dynamo.NewResetSessionRepo(dynamoClient, cfg.DynamoTables.ResetSessions),
		PageTokenRepo:    dynamo.NewPageTokenRepo(dynamoClient, cfg.DynamoTables.PageTokens),
		UserTokenRepo:    dynamo.NewUserTokenRepo(dynamoClient, cfg.DynamoTables.UserTokens),
		AccountRepo:      dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		MessageRepo:      dynamo.NewMessageRepo(dynamoClient, cfg.DynamoTables.Messages),
		ConversationRepo: dynamo.NewConversationRepo(dynamoClient, cfg.DynamoTables.Conversations),
		MailRepo:         dynamo.NewMailRepo(dynamoClient, cfg.DynamoTables.MailOutbox),
		Graph:            graph,
		OpenAI:           openai.NewClient(cfg),
		Archive:          archive,
		Alerts:           alerts,
		JWTProvider:      jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// The scheduled passes get their own service instance; it shares the
	// repos and Graph client with the router's.
	tokenSvc := token.NewService(deps.PageTokenRepo, deps.UserTokenRepo, graph, alerts)
	schedCtx, stopSched := context.WithCancel(context.Background())
	go runEvery(schedCtx, cfg.TokenRotateInterval, "rotate", tokenSvc.Rotate)
	go runEvery(schedCtx, cfg.TokenRefreshInterval, "refresh", tokenSvc.Refresh)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSched()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// runEvery fires job on a fixed interval until ctx is cancelled.
func runEvery(ctx context.Context, interval time.Duration, name string, job func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job(ctx); err != nil {
				log.Printf("WARN: scheduled %s pass failed: %v", name, err)
			}
		}
	}
}
