/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eventhub/apiserver/config"
	"github.com/eventhub/apiserver/pkg/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eventhub",
	Short: "Backend for the eventhub dance event platform",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and initializes the global logger from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if err := logger.Init(cfg.Log.Format, cfg.Log.Level); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
