// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Annany2002/nebula-workbench/api"
	"github.com/Annany2002/nebula-workbench/config"
	"github.com/Annany2002/nebula-workbench/internal/engine"
	"github.com/Annany2002/nebula-workbench/internal/kv"
	"github.com/Annany2002/nebula-workbench/internal/logger"
	"github.com/Annany2002/nebula-workbench/internal/policy"
	"github.com/Annany2002/nebula-workbench/internal/session"
)

var (
	customLog = logger.NewLogger()
)

func newOpener(cfg *config.Config) (engine.Opener, error) {
	if cfg.EngineDriver == config.DriverPostgres {
		return engine.NewPostgresOpener(cfg.PostgresDSN)
	}
	return engine.NewSQLiteOpener(cfg.EngineDir())
}

func main() {
	customLog.Println("Starting Nebula Workbench server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Engine storage and the session store
	opener, err := newOpener(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize %s engine: %v", cfg.EngineDriver, err)
	}

	store, err := kv.Open(cfg.DatabaseDir, cfg.SessionStoreFile)
	if err != nil {
		customLog.Fatalf("Failed to initialize session store: %v", err)
	}
	defer func() {
		customLog.Println("Closing session store...")
		if err := store.Close(); err != nil {
			customLog.Printf("Error closing session store: %v", err)
		}
	}()

	// 3. Restore the session
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workbench := session.NewStore(opener, policy.NewClient(cfg.PolicyEvaluatorURL, cfg.PolicyTimeout), store)
	if err := workbench.Init(ctx); err != nil {
		customLog.Fatalf("Failed to restore session: %v", err)
	}

	// 4. Setup Router and start the server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           api.SetupRouter(workbench, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		customLog.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			customLog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	customLog.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		customLog.Warnf("Server shutdown: %v", err)
	}
	if err := workbench.Close(shutdownCtx); err != nil {
		customLog.Warnf("Closing active engine: %v", err)
	}
}
