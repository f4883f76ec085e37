/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eventhub/apiserver/internal/mq"
	"github.com/eventhub/apiserver/internal/server"
	"github.com/eventhub/apiserver/pkg/logger"
)

// watchCmd tails the change feed and logs every change.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log changes published on the event change feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := server.OpenMQ(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open mq: %w", err)
		}
		if broker == nil {
			return errors.New("no mq driver configured")
		}
		defer broker.Close()

		log := logger.Named("watch")
		log.Info(ctx, "watching change feed", logger.String("channel", cfg.MQ.Channel))

		feed := mq.NewChangePublisher(broker, cfg.MQ.Channel)
		err = feed.SubscribeChanges(ctx, func(ctx context.Context, c mq.Change) error {
			log.Info(ctx, "change",
				logger.String("kind", string(c.Kind)),
				logger.String("event_id", c.EventID),
				logger.String("user_id", c.UserID),
				logger.String("role", c.Role),
				logger.String("actor_id", c.ActorID),
				logger.Any("at", c.At),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
