package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/RUSHIKESH1209/Nexable/internal/auth"
	"github.com/RUSHIKESH1209/Nexable/internal/config"
	"github.com/RUSHIKESH1209/Nexable/internal/domain"
	"github.com/RUSHIKESH1209/Nexable/internal/handler"
	"github.com/RUSHIKESH1209/Nexable/internal/hub"
	"github.com/RUSHIKESH1209/Nexable/internal/registry"
	"github.com/RUSHIKESH1209/Nexable/internal/service"
	"github.com/RUSHIKESH1209/Nexable/internal/store"
	pkglog "github.com/RUSHIKESH1209/Nexable/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "realtime-service",
	})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting realtime-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Message persistence collaborator
	messageStore, err := store.NewMongoMessageStore(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	logger.Info().Str("uri", cfg.Mongo.URI).Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	// Authentication collaborator
	authenticator := auth.NewJWTAuthenticator(cfg.Auth.JWTSecret)

	// Presence authority and transport hub. Presence transitions are
	// broadcast from the registry's critical section so peers observe
	// them in the order they were decided.
	wsHub := hub.NewHub()
	reg := registry.NewMemoryRegistry(func(userID string, online bool) {
		wsHub.Broadcast(domain.NewPresenceMessage(userID, online))
	})

	svc := service.NewRealtimeService(reg, messageStore, authenticator)

	wsHandler := handler.NewWSHandler(wsHub, svc, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(svc, authenticator)

	router := mux.NewRouter()
	router.HandleFunc("/ws", wsHandler.HandleWebSocket)
	router.HandleFunc("/api/v1/messages/{peer_id}", httpHandler.GetHistory).Methods("GET")
	router.HandleFunc("/api/v1/online", httpHandler.GetOnlineUsers).Methods("GET")
	router.HandleFunc("/health", httpHandler.HealthCheck).Methods("GET")

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("realtime-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down realtime-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	wsHub.Stop()

	if err := messageStore.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mongodb disconnect error")
	}

	logger.Info().Msg("realtime-service stopped")
}
