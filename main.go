package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"chat-gateway/internal/config"
	"chat-gateway/internal/db"
	"chat-gateway/internal/gateway"
	grpcclient "chat-gateway/internal/grpc"
	"chat-gateway/internal/handlers"
	"chat-gateway/internal/identity"
	"chat-gateway/internal/middleware"
	"chat-gateway/internal/observability"
	"chat-gateway/internal/presence"
	"chat-gateway/internal/rabbitmq"
	"chat-gateway/internal/receipts"
	"chat-gateway/internal/repositories"
	"chat-gateway/internal/telemetry"
	"chat-gateway/internal/tracing"
	"chat-gateway/internal/ws"
)

const (
	auditRoutingKey = "audit.chat-gateway"
	shutdownTimeout = 10 * time.Second
)

type pingingResolver interface {
	identity.Resolver
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.DBDriver, cfg.DBDSN, cfg.DBMigrate)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	resolver, closeResolver, err := buildResolver(cfg)
	if err != nil {
		log.Fatalf("failed to set up identity provider: %v", err)
	}
	defer closeResolver()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.Environment)

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	receiptRepo := repositories.NewReceiptRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	receiptService := receipts.NewService(receiptRepo, messageRepo, conversationRepo)

	gw := gateway.New(
		presence.NewRegistry(),
		presence.NewRooms(),
		receiptService,
		reactionRepo,
		resolver,
		gateway.WithTypingTimeout(cfg.TypingTimeout),
		gateway.WithAuditor(audit),
	)

	authenticator := identity.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	wsHandler := ws.NewWebSocketHandler(gw, authenticator, audit, ws.Options{
		EventsPerSecond: cfg.WSEventsPerSecond,
		EventBurst:      cfg.WSEventBurst,
		SendBuffer:      cfg.WSSendBuffer,
	})
	messageHandler := handlers.NewMessageHandler(conversationRepo, messageRepo, receiptService)
	presenceHandler := handlers.NewPresenceHandler(gw)
	relayHandler := handlers.NewRelayHandler(gw, audit)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Check{
		"database": database.PingContext,
		"identity": resolver.Ping,
	})

	router := gin.New()

	// middlewares
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", healthHandler.Live)
	router.GET("/readyz", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	router.GET("/ws", wsHandler.Handle)

	authMiddleware := middleware.AuthMiddleware(authenticator, resolver)
	router.GET("/presence/:user_id", authMiddleware, presenceHandler.GetPresence)
	router.GET("/conversations/:conversation_id/messages/:message_id/status", authMiddleware, messageHandler.GetMessageStatus)

	internal := router.Group("/internal", middleware.RelayKeyMiddleware(cfg.RelayKey))
	internal.POST("/messages", relayHandler.PostMessage)
	internal.POST("/conversations/:conversation_id/updated", relayHandler.PostConversationUpdated)

	handlers.RegisterDebugRoutes(router, audit, gw, cfg.DebugRoutes)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Device-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		})(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("chat gateway listening port=%s identity=%s db=%s", cfg.Port, cfg.IdentityProvider, cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down sessions=%d", gw.SessionCount())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

func buildResolver(cfg config.Config) (pingingResolver, func(), error) {
	if cfg.IdentityProvider == config.IdentityHTTP {
		return identity.NewHTTPResolver(cfg.IdentityHTTPURL, &http.Client{Timeout: 5 * time.Second}), func() {}, nil
	}

	conn, err := grpc.NewClient(cfg.IdentityGRPCAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	)
	if err != nil {
		return nil, nil, err
	}
	return grpcclient.NewIdentityClient(conn), func() { conn.Close() }, nil
}
