package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	api "proactive-backend/cmd/api"
	"proactive-backend/internal/cache/repository"
	"proactive-backend/internal/proactive/evaluator"
	"proactive-backend/internal/proactive/scheduler"
	"proactive-backend/internal/proactive/usecase"
	coordsync "proactive-backend/internal/sync"
	"proactive-backend/pkg/ai"
	"proactive-backend/pkg/calendar"
	"proactive-backend/pkg/chroma"
	"proactive-backend/pkg/config"
	"proactive-backend/pkg/database"
	"proactive-backend/pkg/fcm"
	"proactive-backend/pkg/memory"
	"proactive-backend/pkg/notify"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Hot cache database (patterns, rules, notification history)
	cacheDB, err := database.NewSQLiteConnection(cfg.CacheDBPath)
	if err != nil {
		log.Fatal("Failed to open cache database:", err)
	}
	cacheStore, err := repository.NewGormCacheStore(cacheDB)
	if err != nil {
		log.Fatal("Failed to migrate cache database:", err)
	}
	if err := cacheStore.SeedDefaultRules(); err != nil {
		log.Fatal("Failed to seed default trigger rules:", err)
	}

	// Long-term memory database (profile, goals, insights)
	memoryDB, err := database.NewSQLiteConnection(cfg.MemoryDBPath)
	if err != nil {
		log.Fatal("Failed to open memory database:", err)
	}
	memoryStore, err := memory.NewGormStore(memoryDB)
	if err != nil {
		log.Fatal("Failed to migrate memory database:", err)
	}

	// Content generation (gemini/ollama/template routing)
	generator, err := ai.NewGenerator(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiApiKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI generator:", err)
	}
	log.Printf("[Main] AI generator initialized with provider: %s", cfg.AIProvider)

	// Google Calendar (optional; unavailable without tokens)
	calendarService := calendar.NewService(context.Background(),
		cfg.GoogleClientID, cfg.GoogleClientSecret,
		cfg.GoogleAccessToken, cfg.GoogleRefreshToken)

	// Notification delivery: FCM when configured, console fallback
	var sender notify.Sender
	if cfg.FirebaseCredentials != "" && len(cfg.FCMDeviceTokens) > 0 {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[Main] FCM unavailable, falling back to console delivery: %v", err)
			sender = notify.NewConsoleSender()
		} else {
			sender = notify.NewFCMSender(fcmClient, cfg.FCMDeviceTokens)
		}
	} else {
		log.Println("[Main] No FCM configuration, using console delivery")
		sender = notify.NewConsoleSender()
	}

	// Optional semantic insight index
	var insightStore *chroma.InsightStore
	if cfg.ChromaAPIKey != "" {
		insightStore, err = chroma.NewInsightStore(cfg)
		if err != nil {
			log.Printf("[Main] Chroma insight store unavailable: %v", err)
			insightStore = nil
		}
	}

	// Core subsystem wiring
	gate := scheduler.NewGate(cacheStore, cfg.MaxNotificationsPerHour, cfg.QuietHoursStart, cfg.QuietHoursEnd)
	dispatcher := scheduler.NewDispatcher(generator, sender, cacheStore, gate)
	eval := evaluator.New(cacheStore, calendarService)
	sched := scheduler.New(cacheStore, eval, gate, dispatcher, scheduler.Config{
		CheckInterval:           cfg.CheckInterval,
		MaxNotificationsPerHour: cfg.MaxNotificationsPerHour,
		QuietHoursStart:         cfg.QuietHoursStart,
		QuietHoursEnd:           cfg.QuietHoursEnd,
	})
	coordinator := coordsync.NewCoordinator(cacheStore, memoryStore, calendarService, insightStore, cfg.SyncInterval)
	feedback := coordsync.NewFeedback(cacheStore)
	manager := usecase.NewProactiveManager(cacheStore, sched, coordinator, feedback, dispatcher, sender)

	if err := manager.Start(); err != nil {
		log.Fatal("Failed to start proactive manager:", err)
	}

	// HTTP control plane
	r := gin.Default()
	api.SetupRoutes(r, manager)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.Printf("[Main] Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Main] Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] Server shutdown error: %v", err)
	}

	manager.Stop()
	if err := cacheStore.Close(); err != nil {
		log.Printf("[Main] Failed to close cache store: %v", err)
	}
	if sqlDB, err := memoryDB.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("[Main] Shutdown complete")
}
