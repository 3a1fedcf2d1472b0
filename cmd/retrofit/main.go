// Package main is the entry point for the retrofit command.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/retrofit/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	configPath string
	imagePath  string
	debug      bool
	scriptDirs []string
)

var rootCmd = &cobra.Command{
	Use:   "retrofit",
	Short: "Instrument host methods with deniable events",
	Long: `retrofit rewrites host methods so they raise events before acting.

Handlers subscribe to events by name from Lua scripts; a handler may deny the
action, change the payload or just observe it. Methods are only rewritten once
an event they serve has a subscriber, unless lazy instrumentation is off.`,
	SilenceUsage: true,
	Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&imagePath, "image", "", "Host image YAML (default: embedded game)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringSliceVarP(&scriptDirs, "scripts", "s", nil, "Script directories (added to the configured ones)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies command line overrides to the configuration file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debug
	}
	cfg.Scripts = append(cfg.Scripts, scriptDirs...)
	return cfg, cfg.Validate()
}
