package main

import (
	"fmt"
	"os"

	"github.com/fentz26/pomo/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pomo",
	Short: "pomo - Pomodoro task runner",
	Long:  `pomo runs focus sessions against your task plan, keeps one task active at a time and survives restarts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	cfg        *config.Config
	configPath string
	apiAddr    string
	apiToken   string
	dbPath     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "", "API server address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to local SQLite database (overrides config)")

	// Add subcommands
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(cmd *cobra.Command) error {
	c, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api") {
		c.APIAddr = apiAddr
	}
	if cmd.Flags().Changed("token") {
		c.Token = apiToken
	}
	if cmd.Flags().Changed("db") {
		c.DBPath = dbPath
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
