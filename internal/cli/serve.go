package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quietloop/wellspring/internal/config"
	"github.com/quietloop/wellspring/internal/engine"
	"github.com/quietloop/wellspring/internal/server"
	"github.com/quietloop/wellspring/internal/store"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to config.yaml")
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("WELLSPRING_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	loc := time.Local
	if cfg.Engine.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Engine.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", cfg.Engine.Timezone, err)
		}
	}

	eng := engine.New(db, log, loc)
	srv := server.New(db, eng, log, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("wellspring serving", zap.String("addr", addr), zap.String("db", dbPath))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-done
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Let in-flight background recomputes drain before closing the DB.
	eng.Wait()
	return nil
}
