package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fentz26/pomo/internal/config"
	"github.com/fentz26/pomo/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// A local backend that is not running yet gets started in the background.
	if !isBackendRunning() {
		if host, ok := localListenAddr(cfg.APIAddr); ok {
			fmt.Println("Backend not running. Starting local backend...")
			if err := startBackend(host); err != nil {
				return fmt.Errorf("failed to start backend: %w", err)
			}
		}
	}

	// Log lines would corrupt the alternate screen.
	if err := os.MkdirAll(config.Dir(), 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(config.Dir(), "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	s, err := buildSession(log.New(logFile, "", log.LstdFlags))
	if err != nil {
		return err
	}
	defer s.Close()

	app := tui.New(s.ctrl)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isBackendRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return newClient().Health(ctx)
}

// localListenAddr returns the host:port to serve on when addr points at this
// machine.
func localListenAddr(addr string) (string, bool) {
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := u.Hostname()
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return "", false
		}
	}
	return u.Host, true
}

func startBackend(listen string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, "serve", "--config", configPath, "--listen", listen)
	// Detach so the backend survives TUI exit.
	configureBackendProc(cmd)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for backend...")
	for i := 0; i < 20; i++ {
		if isBackendRunning() {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("backend started but API not reachable at %s", cfg.APIAddr)
}
