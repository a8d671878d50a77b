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

	"storyweaver/internal/account"
	"storyweaver/internal/api"
	"storyweaver/internal/config"
	"storyweaver/internal/core"
	"storyweaver/internal/playback"
	"storyweaver/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Story repository; the database handle is opened lazily on first use
	storyStore := store.NewStoryStore(config.AppConfig.DatabaseURL)
	defer storyStore.Close()

	// Accounts and the persisted session
	accounts := account.NewFileStore(config.AppConfig.AccountsFile)
	session := account.NewSession(config.AppConfig.SessionFile)
	if acct := session.Current(); acct != nil {
		log.Printf("Restored session for %s", acct.Username)
	}

	// Generation client
	llmService := core.NewLLMService()
	defer llmService.Close()

	// Host-side narration playback
	player := playback.NewController(nil)
	defer player.Stop()

	storyService := core.NewStoryService(storyStore, llmService)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(storyService, accounts, session, player)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // Generation and TTS calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
