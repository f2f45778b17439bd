package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fentz26/pomo/internal/config"
	"github.com/fentz26/pomo/internal/server"
	"github.com/fentz26/pomo/internal/store"
	"github.com/spf13/cobra"
)

var (
	listenAddr   string
	serverDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local task backend",
	Long:  `Starts a local HTTP backend serving the pomodoro task API, for offline use and development.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	serveCmd.Flags().StringVar(&serverDBPath, "server-db", filepath.Join(config.Dir(), "server.db"), "Path to the backend SQLite database")
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("Starting pomo backend...")

	addr := cfg.ListenAddr
	if cmd.Flags().Changed("listen") {
		addr = listenAddr
	}

	s, err := store.New(serverDBPath)
	if err != nil {
		return err
	}

	srv := server.NewServer(server.NewService(s), addr, cfg.Token)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
