/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eventhub/apiserver/internal/server"
	"github.com/eventhub/apiserver/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the eventhub backend server",
	Long: `Starts the eventhub backend server. Usage:

	eventhub server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		log := logger.Named("cmd")
		select {
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "server error: %v\n", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			log.Info(context.Background(), "shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(shutdownCtx, "shutdown failed", logger.Error(err))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
