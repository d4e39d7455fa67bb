// Server hosts the co-browse session API and the realtime gateway.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditpkg "horeca-pos/backend/internal/audit"
	auditrepo "horeca-pos/backend/internal/audit/repository"
	"horeca-pos/backend/internal/config"
	"horeca-pos/backend/internal/db"
	"horeca-pos/backend/internal/policy/engine"
	policyrepo "horeca-pos/backend/internal/policy/repository"
	"horeca-pos/backend/internal/realtime"
	"horeca-pos/backend/internal/security"
	"horeca-pos/backend/internal/server"
	sessionpkg "horeca-pos/backend/internal/session"
	sessionhandler "horeca-pos/backend/internal/session/handler"
	sessionrepo "horeca-pos/backend/internal/session/repository"
	"horeca-pos/backend/internal/telemetry"
	teleotel "horeca-pos/backend/internal/telemetry/otel"
	"horeca-pos/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := teleotel.NewProviders(ctx, cfg.OTLPEndpoint, "horeca-pos-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	sessions := sessionpkg.NewService(sessionrepo.NewPostgresRepository(conn))
	policies := engine.NewOPAEvaluator(policyrepo.NewPostgresRepository(conn))
	auditRepo := auditrepo.NewPostgresRepository(conn)
	auditLog := auditpkg.NewLogger(auditRepo, nil)

	var kafkaProducer producer.Producer
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kp, err := producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		kafkaProducer = kp
		defer kafkaProducer.Close()
	}

	gateway := realtime.NewGateway(tokens, slog.Default())

	handler := server.NewHandler(server.Deps{
		Tokens:    tokens,
		Sessions:  sessionhandler.NewHandler(sessions, policies, auditLog, teleotel.NewEventEmitter(providers.LoggerProvider)),
		Realtime:  gateway,
		AuditRepo: auditRepo,
		Telemetry: kafkaProducer,
		DBPinger:  conn,
		Policy:    policies,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	gateway.Close()

	// Let in-flight async telemetry emits finish before tearing down OTel.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
